package cache

import (
	"testing"

	"github.com/spf13/afero"
)

func newTestCache() *Cache {
	return New(afero.NewMemMapFs(), "/cache")
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache()
	in := map[string]any{"provider": "SHA", "policy_number": "P-123"}
	if err := c.Put(Key("insurance", "42"), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]any
	found, err := c.Get(Key("insurance", "42"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if out["provider"] != "SHA" {
		t.Errorf("expected provider SHA, got %v", out["provider"])
	}
}

func TestGetMissingKey(t *testing.T) {
	c := newTestCache()
	var out map[string]any
	found, err := c.Get(Key("profile", "1"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected missing key not to be found")
	}
}

func TestNamespacingByUser(t *testing.T) {
	c := newTestCache()
	if err := c.Put(Key("wishlist", "userA"), []string{"amoxicillin"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// User B must not observe user A's cached value.
	var items []string
	found, err := c.Get(Key("wishlist", "userB"), &items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("user B unexpectedly saw user A's cache entry")
	}

	found, _ = c.Get(Key("wishlist", "userA"), &items)
	if !found || len(items) != 1 {
		t.Errorf("user A's entry lost: found=%v items=%v", found, items)
	}
}

func TestAnonymousNamespace(t *testing.T) {
	if got := Key("profile", ""); got != "profile_anonymous" {
		t.Errorf("expected profile_anonymous, got %s", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newTestCache()
	if err := c.Put("token_1", "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Delete("token_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Delete("token_1"); err != nil {
		t.Errorf("deleting missing key should be a no-op, got %v", err)
	}
}

func TestDeleteMatching(t *testing.T) {
	c := newTestCache()
	c.Put(Key("profile", "7"), "p")
	c.Put(Key("insurance", "7"), "i")
	c.Put(Key("profile", "8"), "q")

	if err := c.DeleteMatching("profile_"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var s string
	if found, _ := c.Get(Key("profile", "7"), &s); found {
		t.Error("expected profile_7 to be deleted")
	}
	if found, _ := c.Get(Key("profile", "8"), &s); found {
		t.Error("expected profile_8 to be deleted")
	}
	if found, _ := c.Get(Key("insurance", "7"), &s); !found {
		t.Error("expected insurance_7 to survive")
	}
}

func TestCorruptEntryTreatedAsMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/cache")
	afero.WriteFile(fs, "/cache/profile_1.json", []byte("{not json"), 0o600)

	var out map[string]any
	found, err := c.Get("profile_1", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("corrupt entry should be treated as missing")
	}
}
