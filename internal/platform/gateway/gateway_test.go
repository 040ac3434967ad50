package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestGetAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL: srv.URL,
		Tokens:  func() (string, bool) { return "tok-123", true },
		Logger:  zerolog.Nop(),
	})

	var out map[string]any
	if err := c.Get(context.Background(), "/api/patient/profile", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestAnonymousWhenNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL: srv.URL,
		Tokens:  func() (string, bool) { return "", false },
		Logger:  zerolog.Nop(),
	})
	if err := c.Get(context.Background(), "/health", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected no auth header, got %q", gotAuth)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		check  func(error) bool
		name   string
	}{
		{http.StatusNotFound, `{"detail": "Medication not found"}`, IsNotFound, "not found"},
		{http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`, IsUnauthorized, "unauthorized"},
		{http.StatusBadRequest, `{"detail": "Item already in wishlist"}`, IsConflict, "conflict 400"},
		{http.StatusConflict, `{"message": "duplicate"}`, IsConflict, "conflict 409"},
		{http.StatusUnprocessableEntity, `{"detail": [{"loc": ["body"]}]}`, IsValidation, "validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
			err := c.Get(context.Background(), "/x", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Errorf("predicate failed for %v", err)
			}
			if IsNetwork(err) {
				t.Errorf("HTTP error misclassified as network failure: %v", err)
			}
		})
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "Item already in wishlist"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	err := c.Post(context.Background(), "/api/patient/wishlist", map[string]any{"medication_id": 1}, nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "Item already in wishlist" {
		t.Errorf("expected detail message, got %q", apiErr.Message)
	}
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "expired"}`))
	}))
	defer srv.Close()

	var hookCalled bool
	c := New(Options{
		BaseURL:        srv.URL,
		OnUnauthorized: func() { hookCalled = true },
		Logger:         zerolog.Nop(),
	})
	err := c.Get(context.Background(), "/api/patient/profile", nil)
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !hookCalled {
		t.Error("expected OnUnauthorized hook to fire")
	}
}

func TestNetworkFailureClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	err := c.Get(context.Background(), "/x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetwork(err) {
		t.Errorf("expected network classification, got %v", err)
	}
	if IsNotFound(err) || IsUnauthorized(err) {
		t.Errorf("network failure misclassified: %v", err)
	}
}

func TestPutDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
		w.Write([]byte(`{"provider": "SHA"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	var out map[string]any
	if err := c.Put(context.Background(), "/api/patient/insurance", map[string]string{"provider": "SHA"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["provider"] != "SHA" {
		t.Errorf("expected decoded response, got %v", out)
	}
}
