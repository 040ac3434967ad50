package wellness

import (
	"math"
	"time"
)

// ComputeScore derives the mental health summary from the recent mood
// entries and game results. All four components start at a neutral 50:
// game performance lifts focus and lowers stress, mood check-ins set
// the mood and anxiety components directly. Used as the offline stand-in
// for the server-side calculation, which follows the same formula.
func ComputeScore(moods []MoodEntry, games []GameResult, now time.Time) Score {
	focus, stress, mood, anxiety := 50.0, 50.0, 50.0, 50.0

	if avg, ok := avgScore(games, GameMemory); ok {
		focus = math.Min(100, focus+avg*0.3)
	}
	if avg, ok := avgScore(games, GameReaction); ok {
		focus = math.Min(100, focus+avg*0.2)
	}
	if avg, ok := avgScore(games, GameColor); ok {
		focus = math.Min(100, focus+avg*0.2)
	}
	if avg, ok := avgScore(games, GameFocus); ok {
		focus = math.Min(100, focus+avg*0.3)
		stress = math.Max(0, stress-avg*0.2)
	}

	if len(moods) > 0 {
		var sumMood, sumAnxiety, sumEnergy float64
		for _, m := range moods {
			sumMood += float64(m.Mood)
			sumAnxiety += float64(m.Anxiety)
			sumEnergy += float64(m.Energy)
		}
		n := float64(len(moods))
		avgMood, avgAnxiety, avgEnergy := sumMood/n, sumAnxiety/n, sumEnergy/n

		mood = avgMood * 10
		anxiety = 100 - avgAnxiety*10
		stress = math.Max(0, stress-avgAnxiety*5)
		focus = math.Min(100, focus+avgEnergy*3)
	}

	recommendations := []string{}
	if focus < 60 {
		recommendations = append(recommendations, "Try more memory and reaction games to improve focus")
	}
	if stress < 60 {
		recommendations = append(recommendations, "Practice breathing exercises and meditation")
	}
	if mood < 60 {
		recommendations = append(recommendations, "Consider activities that bring you joy and track your mood regularly")
	}
	if anxiety < 60 {
		recommendations = append(recommendations, "Try relaxation techniques and consider talking to a mental health professional")
	}

	return Score{
		Overall:         int(math.Round((focus + stress + mood + anxiety) / 4)),
		Stress:          int(math.Round(stress)),
		Anxiety:         int(math.Round(anxiety)),
		Focus:           int(math.Round(focus)),
		Mood:            int(math.Round(mood)),
		Recommendations: recommendations,
		LastUpdated:     now,
	}
}

func avgScore(games []GameResult, gameType string) (float64, bool) {
	var sum float64
	var n int
	for _, g := range games {
		if g.Game == gameType {
			sum += float64(g.Score)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
