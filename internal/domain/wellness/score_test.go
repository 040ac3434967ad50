package wellness

import (
	"testing"
	"time"
)

func TestComputeScoreNoHistory(t *testing.T) {
	now := time.Now()
	sc := ComputeScore(nil, nil, now)

	if sc.Focus != 50 || sc.Stress != 50 || sc.Mood != 50 || sc.Anxiety != 50 {
		t.Errorf("all components must start at the neutral baseline, got %+v", sc)
	}
	if sc.Overall != 50 {
		t.Errorf("expected overall 50, got %d", sc.Overall)
	}
	if len(sc.Recommendations) != 4 {
		t.Errorf("every component below 60 must yield its recommendation, got %v", sc.Recommendations)
	}
	if !sc.LastUpdated.Equal(now) {
		t.Error("LastUpdated must carry the supplied time")
	}
}

func TestComputeScoreFromGamesAndMoods(t *testing.T) {
	games := []GameResult{
		{Game: GameMemory, Score: 80},
		{Game: GameMemory, Score: 60},
		{Game: GameReaction, Score: 50},
		{Game: GameFocus, Score: 40},
	}
	moods := []MoodEntry{
		{Mood: 8, Anxiety: 4, Energy: 5},
		{Mood: 6, Anxiety: 2, Energy: 5},
	}

	sc := ComputeScore(moods, games, time.Now())

	// memory avg 70 lifts focus to 71, reaction avg 50 to 81, focus avg
	// 40 to 93 and drops stress to 42; the mood averages (7, 3, 5) then
	// set mood 70, anxiety 70, stress 27 and cap focus at 100.
	if sc.Focus != 100 {
		t.Errorf("expected focus 100, got %d", sc.Focus)
	}
	if sc.Stress != 27 {
		t.Errorf("expected stress 27, got %d", sc.Stress)
	}
	if sc.Mood != 70 {
		t.Errorf("expected mood 70, got %d", sc.Mood)
	}
	if sc.Anxiety != 70 {
		t.Errorf("expected anxiety 70, got %d", sc.Anxiety)
	}
	if sc.Overall != 67 {
		t.Errorf("expected overall 67, got %d", sc.Overall)
	}
	if len(sc.Recommendations) != 1 || sc.Recommendations[0] != "Practice breathing exercises and meditation" {
		t.Errorf("only the stress recommendation should fire, got %v", sc.Recommendations)
	}
}

func TestComputeScoreGamesOnly(t *testing.T) {
	games := []GameResult{
		{Game: GameColor, Score: 100},
		{Game: GameFocus, Score: 100},
	}

	sc := ComputeScore(nil, games, time.Now())

	// color avg 100 lifts focus to 70, focus avg 100 caps it at 100 and
	// drops stress to 30; mood and anxiety stay at the baseline.
	if sc.Focus != 100 || sc.Stress != 30 {
		t.Errorf("unexpected game-derived components: %+v", sc)
	}
	if sc.Mood != 50 || sc.Anxiety != 50 {
		t.Errorf("mood components must stay at baseline without check-ins, got %+v", sc)
	}
}

func TestComputeScoreMoodsOnly(t *testing.T) {
	moods := []MoodEntry{{Mood: 9, Anxiety: 1, Energy: 9}}

	sc := ComputeScore(moods, nil, time.Now())

	if sc.Mood != 90 {
		t.Errorf("expected mood 90, got %d", sc.Mood)
	}
	if sc.Anxiety != 90 {
		t.Errorf("expected anxiety 90, got %d", sc.Anxiety)
	}
	if sc.Stress != 45 {
		t.Errorf("expected stress 45, got %d", sc.Stress)
	}
	if sc.Focus != 77 {
		t.Errorf("expected focus 77, got %d", sc.Focus)
	}
	if len(sc.Recommendations) != 1 {
		t.Errorf("only the stress recommendation should fire, got %v", sc.Recommendations)
	}
}
