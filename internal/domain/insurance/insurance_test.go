package insurance

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
	"github.com/kiangombe/patientcenter/internal/store"
)

func TestQuarterlyUsage(t *testing.T) {
	cases := []struct {
		name       string
		limit      float64
		used       float64
		remaining  float64
		percentage float64
		overLimit  bool
	}{
		{"half used", 10000, 5000, 5000, 50, false},
		{"nothing used", 10000, 0, 10000, 0, false},
		{"fully used", 10000, 10000, 0, 100, false},
		{"over limit clamps to zero", 10000, 12000, 0, 120, true},
		{"zero limit", 0, 0, 0, 0, false},
		{"zero limit with usage", 0, 500, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := Insurance{PlanType: PlanSHA, QuarterlyLimit: tc.limit, QuarterlyUsed: tc.used}.Usage()
			if u.Remaining != tc.remaining {
				t.Errorf("remaining = %v, want %v", u.Remaining, tc.remaining)
			}
			if u.Remaining < 0 {
				t.Error("remaining must never be negative")
			}
			if u.Percentage != tc.percentage {
				t.Errorf("percentage = %v, want %v", u.Percentage, tc.percentage)
			}
			if u.OverLimit != tc.overLimit {
				t.Errorf("overLimit = %v, want %v", u.OverLimit, tc.overLimit)
			}
		})
	}
}

func TestCheckCoverageSHA(t *testing.T) {
	ins := Insurance{PlanType: "sha", QuarterlyLimit: 10000, QuarterlyUsed: 9500}
	if ins.CheckCoverage(1000) {
		t.Error("expected 1000 to exceed the 500 remaining")
	}
	if !ins.CheckCoverage(400) {
		t.Error("expected 400 to fit the 500 remaining")
	}
	if !ins.CheckCoverage(500) {
		t.Error("expected exactly-remaining amount to be covered")
	}
}

func TestCheckCoverageStandardPlanIsUncapped(t *testing.T) {
	ins := Insurance{PlanType: "standard", QuarterlyLimit: 100, QuarterlyUsed: 100}
	if !ins.CheckCoverage(1e9) {
		t.Error("non-SHA plans have no quarterly cap")
	}
}

func TestDecodeStringlyTypedNumbers(t *testing.T) {
	raw := json.RawMessage(`{"plan_type": "sha", "quarterly_limit": "10000", "quarterly_used": 2500.5}`)
	ins, err := Codec{}.Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.QuarterlyLimit != 10000 || ins.QuarterlyUsed != 2500.5 {
		t.Errorf("unexpected numbers: %+v", ins)
	}
}

func TestDecodeDefaultsToStandardPlan(t *testing.T) {
	ins, err := Codec{}.Decode(json.RawMessage(`{"provider": "Jubilee"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.PlanType != "standard" {
		t.Errorf("expected standard default, got %q", ins.PlanType)
	}
	if ins.IsShaPlan() {
		t.Error("default plan must not be SHA")
	}
}

func TestEncodePatchSparse(t *testing.T) {
	provider := "SHA"
	limit := 10000.0
	out := Codec{}.EncodePatch(Patch{Provider: &provider, QuarterlyLimit: &limit})
	if len(out) != 2 {
		t.Errorf("expected two keys, got %v", out)
	}
	if out["provider"] != "SHA" || out["quarterly_limit"] != 10000.0 {
		t.Errorf("unexpected wire patch: %v", out)
	}
}

// -- Store scenario: 422 on SHA fields degrades gracefully --

type legacyGateway struct {
	putCalls []map[string]any
}

func (g *legacyGateway) Get(_ context.Context, _ string, out any) error {
	*out.(*json.RawMessage) = json.RawMessage(`{"provider": "Old Mutual", "policy_number": "P-1"}`)
	return nil
}

// Put rejects any payload carrying SHA-specific keys, as an older
// contract would, and persists only base fields.
func (g *legacyGateway) Put(_ context.Context, _ string, body, out any) error {
	m := body.(map[string]any)
	g.putCalls = append(g.putCalls, m)
	for _, key := range []string{"plan_type", "quarterly_limit", "quarterly_used"} {
		if _, ok := m[key]; ok {
			return &gateway.APIError{Status: http.StatusUnprocessableEntity, Message: "unknown field " + key}
		}
	}
	resp := map[string]any{"policy_number": "P-1"}
	if v, ok := m["provider"]; ok {
		resp["provider"] = v
	}
	data, _ := json.Marshal(resp)
	*out.(*json.RawMessage) = data
	return nil
}

func (g *legacyGateway) Post(_ context.Context, _ string, _, _ any) error { return nil }
func (g *legacyGateway) Delete(_ context.Context, _ string, _ any) error  { return nil }

type staticSession string

func (s staticSession) UserID() string    { return string(s) }
func (staticSession) Subscribe(fn func()) {}

func TestUpdateDegradesOn422(t *testing.T) {
	gw := &legacyGateway{}
	c := cache.New(afero.NewMemMapFs(), "/cache")
	s := NewStore(gw, c, staticSession("42"), zerolog.Nop())
	s.Fetch(context.Background())

	provider := "SHA"
	plan := "sha"
	limit := 10000.0
	res := s.Update(context.Background(), Patch{Provider: &provider, PlanType: &plan, QuarterlyLimit: &limit})

	if !res.OK {
		t.Fatalf("expected degraded success, got %+v", res)
	}
	if len(gw.putCalls) != 2 {
		t.Fatalf("expected one retry, got %d calls", len(gw.putCalls))
	}
	if _, ok := gw.putCalls[1]["plan_type"]; ok {
		t.Error("retry payload must not carry SHA fields")
	}
	// Server persisted base fields; SHA fields are merged locally.
	if res.Data.Provider != "SHA" {
		t.Errorf("expected server-confirmed provider, got %q", res.Data.Provider)
	}
	if res.Data.PlanType != "sha" || res.Data.QuarterlyLimit != 10000 {
		t.Errorf("expected locally-merged SHA fields, got %+v", res.Data)
	}
}

var _ store.Codec[Insurance, Patch] = Codec{}
