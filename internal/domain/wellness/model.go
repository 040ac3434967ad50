// Package wellness tracks mood entries and cognitive game results, and
// derives the mental health score shown on the wellness dashboard.
package wellness

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	basePath  = "/api/mental-health"
	MoodPath  = basePath + "/mood"
	GamesPath = basePath + "/games"
	ScorePath = basePath + "/score"
)

// Game types recognized by the score calculation.
const (
	GameMemory   = "memory"
	GameReaction = "reaction"
	GameColor    = "color"
	GameFocus    = "focus"
)

// MoodEntry is one daily check-in. Mood, Energy and Anxiety are rated
// 1 to 10.
type MoodEntry struct {
	ID        int       `json:"id"`
	Date      string    `json:"date"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
	Anxiety   int       `json:"anxiety"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameResult is one finished cognitive game session.
type GameResult struct {
	ID        int            `json:"id"`
	Game      string         `json:"game"`
	Score     int            `json:"score"`
	Level     int            `json:"level"`
	Metrics   map[string]any `json:"metrics"`
	Timestamp time.Time      `json:"timestamp"`
}

// Score is the derived mental health summary. Components are 0 to 100.
type Score struct {
	Overall         int       `json:"overall"`
	Stress          int       `json:"stress"`
	Anxiety         int       `json:"anxiety"`
	Focus           int       `json:"focus"`
	Mood            int       `json:"mood"`
	Recommendations []string  `json:"recommendations"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

type wireMoodEntry struct {
	ID        int        `json:"id"`
	Date      string     `json:"date"`
	Mood      int        `json:"mood"`
	Energy    int        `json:"energy"`
	Anxiety   int        `json:"anxiety"`
	Notes     string     `json:"notes"`
	CreatedAt *time.Time `json:"created_at"`
}

func (w wireMoodEntry) toEntry() MoodEntry {
	e := MoodEntry{ID: w.ID, Date: w.Date, Mood: w.Mood, Energy: w.Energy, Anxiety: w.Anxiety, Notes: w.Notes}
	if w.CreatedAt != nil {
		e.CreatedAt = *w.CreatedAt
	}
	return e
}

type wireGameResult struct {
	ID        int            `json:"id"`
	Game      string         `json:"game"`
	Score     int            `json:"score"`
	Level     int            `json:"level"`
	Metrics   map[string]any `json:"metrics"`
	Timestamp *time.Time     `json:"timestamp"`
}

func (w wireGameResult) toResult() GameResult {
	r := GameResult{ID: w.ID, Game: w.Game, Score: w.Score, Level: w.Level, Metrics: w.Metrics}
	if r.Metrics == nil {
		r.Metrics = map[string]any{}
	}
	if w.Timestamp != nil {
		r.Timestamp = *w.Timestamp
	}
	return r
}

type wireScore struct {
	Overall         int        `json:"overall"`
	Stress          int        `json:"stress"`
	Anxiety         int        `json:"anxiety"`
	Focus           int        `json:"focus"`
	Mood            int        `json:"mood"`
	Recommendations []string   `json:"recommendations"`
	LastUpdated     *time.Time `json:"last_updated"`
}

func decodeMoods(raw json.RawMessage) ([]MoodEntry, error) {
	if len(raw) == 0 {
		return []MoodEntry{}, nil
	}
	var wires []wireMoodEntry
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]MoodEntry, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toEntry())
	}
	return out, nil
}

func decodeGames(raw json.RawMessage) ([]GameResult, error) {
	if len(raw) == 0 {
		return []GameResult{}, nil
	}
	var wires []wireGameResult
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]GameResult, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toResult())
	}
	return out, nil
}

func validateRating(name string, v int) error {
	if v < 1 || v > 10 {
		return fmt.Errorf("%s must be between 1 and 10, got %d", name, v)
	}
	return nil
}

func validateGame(game string, score, level int) error {
	switch game {
	case GameMemory, GameReaction, GameColor, GameFocus:
	default:
		return fmt.Errorf("unknown game type %q", game)
	}
	if score < 0 {
		return fmt.Errorf("score must not be negative, got %d", score)
	}
	if level < 1 {
		return fmt.Errorf("level must be at least 1, got %d", level)
	}
	return nil
}
