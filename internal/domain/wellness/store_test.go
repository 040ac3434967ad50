package wellness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
)

type fakeGateway struct {
	resps map[string]json.RawMessage
	errs  map[string]error
	posts []map[string]any
}

func (f *fakeGateway) call(method, path string, body, out any) error {
	if b, ok := body.(map[string]any); ok {
		f.posts = append(f.posts, b)
	}
	if err := f.errs[method+" "+path]; err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	resp, ok := f.resps[method+" "+path]
	if !ok {
		return nil
	}
	switch v := out.(type) {
	case *json.RawMessage:
		*v = resp
		return nil
	default:
		return json.Unmarshal(resp, out)
	}
}

func (f *fakeGateway) Get(_ context.Context, path string, out any) error {
	return f.call("GET", path, nil, out)
}
func (f *fakeGateway) Post(_ context.Context, path string, body, out any) error {
	return f.call("POST", path, body, out)
}
func (f *fakeGateway) Put(_ context.Context, path string, body, out any) error {
	return f.call("PUT", path, body, out)
}
func (f *fakeGateway) Delete(_ context.Context, path string, out any) error {
	return f.call("DELETE", path, nil, out)
}

type fakeSession struct {
	userID string
	subs   []func()
}

func (f *fakeSession) UserID() string      { return f.userID }
func (f *fakeSession) Subscribe(fn func()) { f.subs = append(f.subs, fn) }

func (f *fakeSession) switchUser(id string) {
	f.userID = id
	for _, fn := range f.subs {
		fn()
	}
}

func newTestStore(gw *fakeGateway) (*Store, *cache.Cache, *fakeSession) {
	c := cache.New(afero.NewMemMapFs(), "/cache")
	sess := &fakeSession{userID: "42"}
	return NewStore(gw, c, sess, zerolog.Nop()), c, sess
}

func TestFetchMoodsDecodesHistory(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"GET " + MoodPath: json.RawMessage(`[
			{"id": 2, "date": "2026-08-27", "mood": 7, "energy": 6, "anxiety": 3, "notes": "good day", "created_at": "2026-08-27T20:00:00Z"},
			{"id": 1, "date": "2026-08-26", "mood": 5, "energy": 4, "anxiety": 6, "notes": ""}
		]`),
	}}
	s, _, _ := newTestStore(gw)

	s.FetchMoods(context.Background())

	moods := s.Moods()
	if len(moods) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(moods))
	}
	if moods[0].ID != 2 || moods[0].Mood != 7 || moods[0].Notes != "good day" {
		t.Errorf("unexpected first entry: %+v", moods[0])
	}
	if !moods[1].CreatedAt.IsZero() {
		t.Error("absent created_at must decode to zero time")
	}
}

func TestFetchMoodsFailureFallsBackToCache(t *testing.T) {
	gw := &fakeGateway{errs: map[string]error{"GET " + MoodPath: fmt.Errorf("connection refused")}}
	s, c, _ := newTestStore(gw)
	c.Put(cache.Key(MoodsCacheKey, "42"), []MoodEntry{{ID: 1, Mood: 6}})

	s.FetchMoods(context.Background())

	if moods := s.Moods(); len(moods) != 1 || moods[0].Mood != 6 {
		t.Errorf("expected cached history, got %+v", moods)
	}
}

func TestFetchGamesDefaultsMetrics(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"GET " + GamesPath: json.RawMessage(`[{"id": 1, "game": "memory", "score": 80, "level": 2}]`),
	}}
	s, _, _ := newTestStore(gw)

	s.FetchGames(context.Background())

	games := s.Games()
	if len(games) != 1 || games[0].Game != GameMemory {
		t.Fatalf("unexpected games: %+v", games)
	}
	if games[0].Metrics == nil {
		t.Error("absent metrics must decode to an empty map")
	}
}

func TestLogMoodSuccess(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"POST " + MoodPath: json.RawMessage(`{"id": 3, "date": "2026-08-28", "mood": 8, "energy": 7, "anxiety": 2, "notes": "steady"}`),
	}}
	s, c, _ := newTestStore(gw)

	res := s.LogMood(context.Background(), 8, 7, 2, "steady")

	if !res.OK || res.Fallback {
		t.Fatalf("expected confirmed log, got %+v", res)
	}
	if res.Data.ID != 3 || res.Data.Mood != 8 {
		t.Errorf("unexpected entry: %+v", res.Data)
	}
	if len(gw.posts) != 1 || gw.posts[0]["anxiety"] != 2 {
		t.Errorf("unexpected payload: %v", gw.posts)
	}
	var cached []MoodEntry
	if found, _ := c.Get(cache.Key(MoodsCacheKey, "42"), &cached); !found || len(cached) != 1 {
		t.Errorf("log must be mirrored, found=%v %+v", found, cached)
	}
}

func TestLogMoodRejectsOutOfRangeRatings(t *testing.T) {
	gw := &fakeGateway{}
	s, _, _ := newTestStore(gw)

	res := s.LogMood(context.Background(), 11, 5, 5, "")

	if res.OK || res.Err == "" {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if len(gw.posts) != 0 {
		t.Error("invalid ratings must never reach the backend")
	}
}

func TestLogMoodOfflineAppendsLocally(t *testing.T) {
	gw := &fakeGateway{errs: map[string]error{"POST " + MoodPath: fmt.Errorf("connection refused")}}
	s, _, _ := newTestStore(gw)

	res := s.LogMood(context.Background(), 6, 6, 4, "offline day")

	if !res.OK || !res.Fallback {
		t.Fatalf("offline log must report a local fallback success, got %+v", res)
	}
	if res.Data.Date == "" || res.Data.CreatedAt.IsZero() {
		t.Errorf("local entry must be stamped, got %+v", res.Data)
	}
	if moods := s.Moods(); len(moods) != 1 || moods[0].Notes != "offline day" {
		t.Errorf("expected local append, got %+v", moods)
	}
}

func TestLogGameRejectsUnknownGame(t *testing.T) {
	gw := &fakeGateway{}
	s, _, _ := newTestStore(gw)

	res := s.LogGame(context.Background(), "chess", 100, 1, nil)

	if res.OK || res.Err == "" {
		t.Fatalf("expected validation failure, got %+v", res)
	}
}

func TestLogGamePrependsResult(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"GET " + GamesPath:  json.RawMessage(`[{"id": 1, "game": "memory", "score": 40, "level": 1}]`),
		"POST " + GamesPath: json.RawMessage(`{"id": 2, "game": "reaction", "score": 75, "level": 3, "metrics": {"avg_ms": 280}}`),
	}}
	s, _, _ := newTestStore(gw)
	s.FetchGames(context.Background())

	res := s.LogGame(context.Background(), GameReaction, 75, 3, map[string]any{"avg_ms": 280})

	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	games := s.Games()
	if len(games) != 2 || games[0].ID != 2 || games[1].ID != 1 {
		t.Errorf("new result must be prepended, got %+v", games)
	}
}

func TestScorePrefersBackend(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"GET " + ScorePath: json.RawMessage(`{"overall": 72, "stress": 40, "anxiety": 80, "focus": 90, "mood": 78, "recommendations": ["Practice breathing exercises and meditation"], "last_updated": "2026-08-28T10:00:00Z"}`),
	}}
	s, _, _ := newTestStore(gw)

	sc, err := s.Score(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Overall != 72 || sc.Focus != 90 || len(sc.Recommendations) != 1 {
		t.Errorf("unexpected score: %+v", sc)
	}
	if sc.LastUpdated.IsZero() {
		t.Error("last_updated must decode")
	}
}

func TestScoreFallsBackToLocalCalculation(t *testing.T) {
	gw := &fakeGateway{
		resps: map[string]json.RawMessage{
			"GET " + MoodPath: json.RawMessage(`[{"id": 1, "mood": 9, "energy": 9, "anxiety": 1}]`),
		},
		errs: map[string]error{"GET " + ScorePath: fmt.Errorf("connection refused")},
	}
	s, _, _ := newTestStore(gw)
	s.FetchMoods(context.Background())

	sc, err := s.Score(context.Background())
	if err != nil {
		t.Fatalf("local fallback must not error: %v", err)
	}
	if sc.Mood != 90 || sc.Anxiety != 90 {
		t.Errorf("expected locally computed score, got %+v", sc)
	}
}

func TestScoreSurfacesServerErrors(t *testing.T) {
	gw := &fakeGateway{errs: map[string]error{
		"GET " + ScorePath: &gateway.APIError{Status: http.StatusInternalServerError, Message: "boom"},
	}}
	s, _, _ := newTestStore(gw)

	if _, err := s.Score(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSessionSwitchResetsHistory(t *testing.T) {
	gw := &fakeGateway{resps: map[string]json.RawMessage{
		"GET " + MoodPath: json.RawMessage(`[{"id": 1, "mood": 7, "energy": 6, "anxiety": 3}]`),
	}}
	s, _, sess := newTestStore(gw)
	s.FetchMoods(context.Background())
	if len(s.Moods()) != 1 {
		t.Fatal("expected populated history")
	}

	sess.switchUser("77")

	if len(s.Moods()) != 0 {
		t.Error("previous user's history leaked into the new session")
	}
}
