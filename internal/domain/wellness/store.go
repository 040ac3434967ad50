package wellness

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Cache keys for the two collections.
const (
	MoodsCacheKey = "mood_entries"
	GamesCacheKey = "game_results"
)

// Store holds the wellness collections for the current session. Reads
// fall back to the cache, logs fall back to a local append, and the
// score falls back to the local calculation, so the wellness page keeps
// working without a backend.
type Store struct {
	gw   store.Gateway
	c    *cache.Cache
	sess store.SessionSource
	log  zerolog.Logger

	mu    sync.Mutex
	moods store.State[[]MoodEntry]
	games store.State[[]GameResult]
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	s := &Store{gw: gw, c: c, sess: sess, log: log.With().Str("resource", "wellness").Logger()}
	sess.Subscribe(s.Reset)
	return s
}

// Moods returns the fetched mood entries, newest first per the backend
// ordering.
func (s *Store) Moods() []MoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moods.Data == nil {
		return []MoodEntry{}
	}
	return append([]MoodEntry(nil), *s.moods.Data...)
}

// Games returns the fetched game results.
func (s *Store) Games() []GameResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.games.Data == nil {
		return []GameResult{}
	}
	return append([]GameResult(nil), *s.games.Data...)
}

// FetchMoods loads the mood history, falling back to the cached copy on
// any failure.
func (s *Store) FetchMoods(ctx context.Context) {
	var raw json.RawMessage
	err := s.gw.Get(ctx, MoodPath, &raw)
	if err == nil {
		entries, derr := decodeMoods(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("decoding mood entries")
			s.setMoodsErr(derr.Error())
			return
		}
		s.setMoods(entries)
		s.mirrorMoods(entries)
		return
	}

	entries := []MoodEntry{}
	if found, cerr := s.c.Get(s.moodsKey(), &entries); cerr == nil && found {
		s.log.Debug().Msg("serving cached mood entries")
	} else {
		entries = []MoodEntry{}
	}
	s.setMoods(entries)
}

// FetchGames loads the game history, falling back to the cached copy on
// any failure.
func (s *Store) FetchGames(ctx context.Context) {
	var raw json.RawMessage
	err := s.gw.Get(ctx, GamesPath, &raw)
	if err == nil {
		results, derr := decodeGames(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("decoding game results")
			s.setGamesErr(derr.Error())
			return
		}
		s.setGames(results)
		s.mirrorGames(results)
		return
	}

	results := []GameResult{}
	if found, cerr := s.c.Get(s.gamesKey(), &results); cerr == nil && found {
		s.log.Debug().Msg("serving cached game results")
	} else {
		results = []GameResult{}
	}
	s.setGames(results)
}

// LogMood records a daily check-in. Ratings are validated client-side
// before any request goes out. A transport failure appends the entry
// locally and reports it with Fallback set.
func (s *Store) LogMood(ctx context.Context, mood, energy, anxiety int, notes string) store.Result[MoodEntry] {
	for _, v := range []struct {
		name string
		val  int
	}{{"mood", mood}, {"energy", energy}, {"anxiety", anxiety}} {
		if err := validateRating(v.name, v.val); err != nil {
			return store.Result[MoodEntry]{Err: err.Error()}
		}
	}

	body := map[string]any{"mood": mood, "energy": energy, "anxiety": anxiety, "notes": notes}
	var raw json.RawMessage
	err := s.gw.Post(ctx, MoodPath, body, &raw)
	if err == nil {
		var w wireMoodEntry
		if derr := json.Unmarshal(raw, &w); derr != nil {
			s.log.Warn().Err(derr).Msg("decoding mood entry")
			return store.Result[MoodEntry]{Err: derr.Error()}
		}
		entry := w.toEntry()
		s.prependMood(entry)
		return store.Result[MoodEntry]{OK: true, Data: entry}
	}

	if gateway.IsNetwork(err) || gateway.IsNotFound(err) {
		now := time.Now().UTC()
		entry := MoodEntry{
			Date:      now.Format("2006-01-02"),
			Mood:      mood,
			Energy:    energy,
			Anxiety:   anxiety,
			Notes:     notes,
			CreatedAt: now,
		}
		s.prependMood(entry)
		s.log.Info().Msg("mood entry stored locally; backend unavailable")
		return store.Result[MoodEntry]{OK: true, Data: entry, Fallback: true}
	}

	s.log.Warn().Err(err).Msg("logging mood entry")
	return store.Result[MoodEntry]{Err: err.Error()}
}

// LogGame records a finished game session, with the same offline append
// behavior as LogMood.
func (s *Store) LogGame(ctx context.Context, game string, score, level int, metrics map[string]any) store.Result[GameResult] {
	if err := validateGame(game, score, level); err != nil {
		return store.Result[GameResult]{Err: err.Error()}
	}
	if metrics == nil {
		metrics = map[string]any{}
	}

	body := map[string]any{"game": game, "score": score, "level": level, "metrics": metrics}
	var raw json.RawMessage
	err := s.gw.Post(ctx, GamesPath, body, &raw)
	if err == nil {
		var w wireGameResult
		if derr := json.Unmarshal(raw, &w); derr != nil {
			s.log.Warn().Err(derr).Msg("decoding game result")
			return store.Result[GameResult]{Err: derr.Error()}
		}
		result := w.toResult()
		s.prependGame(result)
		return store.Result[GameResult]{OK: true, Data: result}
	}

	if gateway.IsNetwork(err) || gateway.IsNotFound(err) {
		result := GameResult{
			Game:      game,
			Score:     score,
			Level:     level,
			Metrics:   metrics,
			Timestamp: time.Now().UTC(),
		}
		s.prependGame(result)
		s.log.Info().Msg("game result stored locally; backend unavailable")
		return store.Result[GameResult]{OK: true, Data: result, Fallback: true}
	}

	s.log.Warn().Err(err).Msg("logging game result")
	return store.Result[GameResult]{Err: err.Error()}
}

// Score asks the backend for the derived summary and, when it cannot
// answer, computes the same formula locally from whatever history this
// client holds.
func (s *Store) Score(ctx context.Context) (Score, error) {
	var w wireScore
	err := s.gw.Get(ctx, ScorePath, &w)
	if err == nil {
		sc := Score{
			Overall:         w.Overall,
			Stress:          w.Stress,
			Anxiety:         w.Anxiety,
			Focus:           w.Focus,
			Mood:            w.Mood,
			Recommendations: w.Recommendations,
		}
		if sc.Recommendations == nil {
			sc.Recommendations = []string{}
		}
		if w.LastUpdated != nil {
			sc.LastUpdated = *w.LastUpdated
		}
		return sc, nil
	}

	if gateway.IsNetwork(err) || gateway.IsNotFound(err) {
		s.log.Debug().Msg("computing wellness score locally")
		return ComputeScore(s.Moods(), s.Games(), time.Now().UTC()), nil
	}
	return Score{}, err
}

// Reset returns the store to its uninitialized state. Called on logout
// and session invalidation.
func (s *Store) Reset() {
	s.mu.Lock()
	s.moods = store.State[[]MoodEntry]{}
	s.games = store.State[[]GameResult]{}
	s.mu.Unlock()
}

func (s *Store) moodsKey() string { return cache.Key(MoodsCacheKey, s.sess.UserID()) }
func (s *Store) gamesKey() string { return cache.Key(GamesCacheKey, s.sess.UserID()) }

func (s *Store) setMoods(entries []MoodEntry) {
	s.mu.Lock()
	s.moods = store.State[[]MoodEntry]{Data: &entries}
	s.mu.Unlock()
}

func (s *Store) setMoodsErr(msg string) {
	s.mu.Lock()
	s.moods.Err = msg
	s.mu.Unlock()
}

func (s *Store) setGames(results []GameResult) {
	s.mu.Lock()
	s.games = store.State[[]GameResult]{Data: &results}
	s.mu.Unlock()
}

func (s *Store) setGamesErr(msg string) {
	s.mu.Lock()
	s.games.Err = msg
	s.mu.Unlock()
}

func (s *Store) prependMood(entry MoodEntry) {
	s.mu.Lock()
	entries := []MoodEntry{entry}
	if s.moods.Data != nil {
		entries = append(entries, *s.moods.Data...)
	}
	s.moods = store.State[[]MoodEntry]{Data: &entries}
	s.mu.Unlock()
	s.mirrorMoods(entries)
}

func (s *Store) prependGame(result GameResult) {
	s.mu.Lock()
	results := []GameResult{result}
	if s.games.Data != nil {
		results = append(results, *s.games.Data...)
	}
	s.games = store.State[[]GameResult]{Data: &results}
	s.mu.Unlock()
	s.mirrorGames(results)
}

func (s *Store) mirrorMoods(entries []MoodEntry) {
	if err := s.c.Put(s.moodsKey(), entries); err != nil {
		s.log.Warn().Err(err).Msg("mirroring mood entries to cache")
	}
}

func (s *Store) mirrorGames(results []GameResult) {
	if err := s.c.Put(s.gamesKey(), results); err != nil {
		s.log.Warn().Err(err).Msg("mirroring game results to cache")
	}
}
