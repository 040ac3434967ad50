// Package session decodes bearer tokens into validated sessions and
// tracks the current authenticated user. Decoding is local: no server
// round trip is made, so a token is trusted as far as its signature
// policy allows (see Decoder).
package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
)

// Well-known cache keys holding the raw bearer token. Both are written
// on login because older builds of the web client read "access_token".
const (
	TokenKey       = "auth_token"
	LegacyTokenKey = "access_token"
)

var (
	// ErrMalformedToken reports a token that is structurally broken:
	// wrong segment count, bad base64, or an unparsable payload.
	ErrMalformedToken = errors.New("malformed bearer token")

	// ErrInvalidPayload reports a token that parsed but is missing a
	// required claim. The whole session is rejected, never a partial one.
	ErrInvalidPayload = errors.New("invalid token payload")
)

// Session is the decoded, time-bounded representation of the
// authenticated actor.
type Session struct {
	UserID      string
	DisplayName string
	Role        string
	Email       string
	ExpiresAt   time.Time
}

// Expired reports whether the session is no longer valid at time now.
// A session with no expiry claim is always expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Decoder turns a raw bearer token into a Session.
//
// When Secret is set the HS256 signature is verified. AllowUnverified
// enables decode-without-verification, matching the behavior of the
// original web client; it is a known security limitation and must be
// switched on explicitly (config validation refuses it in production).
type Decoder struct {
	Secret          []byte
	AllowUnverified bool
}

// Decode parses and validates token. Expiry is NOT checked here; a
// structurally valid but expired token still decodes, and expiry is
// detected on the next Session.Expired check.
func (d Decoder) Decode(token string) (Session, error) {
	claims := jwt.MapClaims{}

	if len(d.Secret) > 0 {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return d.Secret, nil
		})
		if err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	} else {
		if !d.AllowUnverified {
			return Session{}, fmt.Errorf("%w: no secret configured and unverified decoding disabled", ErrMalformedToken)
		}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	return sessionFromClaims(claims)
}

func sessionFromClaims(claims jwt.MapClaims) (Session, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, fmt.Errorf("%w: missing sub", ErrInvalidPayload)
	}

	id, ok := numericClaim(claims["id"])
	if !ok {
		return Session{}, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return Session{}, fmt.Errorf("%w: missing role", ErrInvalidPayload)
	}

	s := Session{
		UserID:      id,
		DisplayName: sub,
		Role:        role,
	}
	if email, _ := claims["email"].(string); email != "" {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

func numericClaim(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10), true
	case string:
		if n == "" {
			return "", false
		}
		return n, true
	}
	return "", false
}

// Manager holds the process-wide session state: the current decoded
// session, the raw token persisted to the local cache, and the set of
// subscribers notified on every session change. It is injected into
// stores at construction time rather than accessed as a global.
type Manager struct {
	dec   Decoder
	cache *cache.Cache
	log   zerolog.Logger

	mu   sync.Mutex
	cur  *Session
	raw  string
	subs []func()
}

// NewManager creates a session manager. When the decoder allows
// unverified tokens a warning is logged once at construction.
func NewManager(dec Decoder, c *cache.Cache, log zerolog.Logger) *Manager {
	if len(dec.Secret) == 0 && dec.AllowUnverified {
		log.Warn().Msg("bearer tokens are decoded WITHOUT signature verification; do not use outside development")
	}
	return &Manager{dec: dec, cache: c, log: log}
}

// Restore loads a previously persisted token from the cache. A missing,
// malformed, or expired token leaves the manager logged out.
func (m *Manager) Restore() {
	var raw string
	found, err := m.cache.Get(TokenKey, &raw)
	if err != nil || !found || raw == "" {
		return
	}
	if _, err := m.SetToken(raw); err != nil {
		m.log.Debug().Err(err).Msg("discarding persisted token")
		m.clearPersisted()
	}
}

// SetToken decodes raw and, on success, makes it the current session,
// persists it under the well-known keys, and notifies subscribers.
func (m *Manager) SetToken(raw string) (Session, error) {
	s, err := m.dec.Decode(raw)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	m.cur = &s
	m.raw = raw
	m.mu.Unlock()

	if err := m.cache.Put(TokenKey, raw); err != nil {
		m.log.Warn().Err(err).Msg("persisting token")
	}
	_ = m.cache.Put(LegacyTokenKey, raw)

	m.notify()
	return s, nil
}

// Current returns the active session. Expiry is checked on every call;
// an expired session is invalidated on first detection.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	cur := m.cur
	m.mu.Unlock()

	if cur == nil {
		return Session{}, false
	}
	if cur.Expired(time.Now()) {
		m.log.Info().Str("user_id", cur.UserID).Msg("session expired")
		m.Logout()
		return Session{}, false
	}
	return *cur, true
}

// UserID returns the current user id, or "" when logged out. Used by
// stores to namespace cache keys.
func (m *Manager) UserID() string {
	s, ok := m.Current()
	if !ok {
		return ""
	}
	return s.UserID
}

// Token returns the raw bearer token for outgoing requests. It reports
// false when there is no live session.
func (m *Manager) Token() (string, bool) {
	if _, ok := m.Current(); !ok {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw, m.raw != ""
}

// Logout clears the session and every persisted token key, then
// notifies subscribers.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.cur = nil
	m.raw = ""
	m.mu.Unlock()

	m.clearPersisted()
	m.notify()
}

func (m *Manager) clearPersisted() {
	_ = m.cache.Delete(TokenKey)
	_ = m.cache.Delete(LegacyTokenKey)
}

// Subscribe registers fn to run after every session change (login,
// logout, expiry). Stores use this to reset state instead of watching
// an ambient global.
func (m *Manager) Subscribe(fn func()) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.mu.Lock()
	subs := make([]func(), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
