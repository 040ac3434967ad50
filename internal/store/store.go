// Package store implements the generic resource-store engine shared by
// every backend resource: fetch through the gateway, normalize into the
// domain shape, fall back to the local cache when the backend cannot
// serve, and reconcile mutations last-writer-wins into a single reactive
// state slot.
package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
)

// Gateway is the subset of the HTTP client the engine needs. Satisfied
// by *gateway.Client; tests supply fakes.
type Gateway interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// SessionSource supplies the user id for cache namespacing and the
// session-change subscription. Satisfied by *session.Manager.
type SessionSource interface {
	UserID() string
	Subscribe(fn func())
}

// Codec is the pure bidirectional converter between the wire format and
// the domain shape for one resource type.
type Codec[T, P any] interface {
	// Defaults returns a fully-formed domain object with every field at
	// its documented default. Never returns partially-populated values.
	Defaults() T

	// Decode converts a wire-format JSON record into the domain shape,
	// applying defaults for absent fields.
	Decode(raw json.RawMessage) (T, error)

	// EncodePatch converts a sparse domain patch into a wire record
	// containing only the fields present in the patch.
	EncodePatch(p P) map[string]any

	// Merge applies a patch to a domain value locally, producing the
	// reconciled copy used for offline updates.
	Merge(cur T, p P) T
}

// Resource describes one server-backed resource and its store policy.
type Resource[T, P any] struct {
	// Key names the resource in cache keys, e.g. "profile".
	Key string

	// Path is the API path, e.g. "/api/patient/profile".
	Path string

	Codec Codec[T, P]

	// Fallback enables the offline path on fetch: when the endpoint is
	// missing or unreachable, data is served from cache or defaults and
	// the error is cleared.
	Fallback bool

	// OfflineWrites enables the offline path on update: a failed write
	// is merged into the cache and reported as a locally-reconciled
	// success.
	OfflineWrites bool

	// ReducePatch, when set, is consulted after a 422 rejection. If it
	// returns a reduced patch (and true), the update is retried once
	// with the reduced payload and the full patch is merged locally on
	// success. Used by insurance updates against older server contracts.
	ReducePatch func(p P) (P, bool)
}

// State is the reactive slot every consuming view reads.
type State[T any] struct {
	Data    *T
	Loading bool
	Err     string
}

// Result is the outcome of an update. Fallback distinguishes a
// locally-reconciled write from a server-confirmed one.
type Result[T any] struct {
	OK       bool
	Data     T
	Fallback bool
	Err      string
}

// Store is the generic reactive container for one resource.
type Store[T, P any] struct {
	res  Resource[T, P]
	gw   Gateway
	c    *cache.Cache
	sess SessionSource
	log  zerolog.Logger

	mu    sync.Mutex
	state State[T]
}

// New builds a store and subscribes it to session changes; any login,
// logout, or expiry resets the slot so one user's data never survives
// into another's session.
func New[T, P any](res Resource[T, P], gw Gateway, c *cache.Cache, sess SessionSource, log zerolog.Logger) *Store[T, P] {
	s := &Store[T, P]{res: res, gw: gw, c: c, sess: sess, log: log.With().Str("resource", res.Key).Logger()}
	sess.Subscribe(s.Reset)
	return s
}

// State returns a copy of the current slot.
func (s *Store[T, P]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Data returns the current domain value, reporting false when the store
// is uninitialized.
func (s *Store[T, P]) Data() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Data == nil {
		var zero T
		return zero, false
	}
	return *s.state.Data, true
}

func (s *Store[T, P]) cacheKey() string {
	return cache.Key(s.res.Key, s.sess.UserID())
}

// Fetch loads the resource. Overlapping fetches are not cancelled; both
// complete and the later response wins the slot.
func (s *Store[T, P]) Fetch(ctx context.Context) {
	s.setLoading(true)

	var raw json.RawMessage
	err := s.gw.Get(ctx, s.res.Path, &raw)
	if err == nil {
		data, derr := s.res.Codec.Decode(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("decoding response")
			s.fail(derr.Error())
			return
		}
		s.ready(data)
		s.mirror(data)
		return
	}

	if s.res.Fallback && (gateway.IsNotFound(err) || gateway.IsNetwork(err)) {
		data := s.res.Codec.Defaults()
		if found, cerr := s.c.Get(s.cacheKey(), &data); cerr == nil && found {
			s.log.Debug().Msg("serving cached fallback")
		} else {
			data = s.res.Codec.Defaults()
		}
		s.ready(data)
		return
	}

	s.log.Warn().Err(err).Msg("fetch failed")
	s.fail(err.Error())
}

// Update sends a sparse patch to the backend and replaces the slot with
// the reconciled result. See Resource for the offline and reduced-retry
// policies.
func (s *Store[T, P]) Update(ctx context.Context, patch P) Result[T] {
	s.setLoading(true)

	wire := s.res.Codec.EncodePatch(patch)
	var raw json.RawMessage
	err := s.gw.Put(ctx, s.res.Path, wire, &raw)
	if err == nil {
		return s.confirm(raw, patch, false)
	}

	// Older server contracts reject payloads carrying fields they do
	// not know; retry once with the reduced field set and keep the
	// rejected fields as a local merge.
	if gateway.IsValidation(err) && s.res.ReducePatch != nil {
		if reduced, ok := s.res.ReducePatch(patch); ok {
			s.log.Info().Msg("retrying update with reduced field set")
			raw = nil
			if rerr := s.gw.Put(ctx, s.res.Path, s.res.Codec.EncodePatch(reduced), &raw); rerr == nil {
				return s.confirm(raw, patch, true)
			}
		}
	}

	if s.res.OfflineWrites && !gateway.IsValidation(err) {
		base, ok := s.Data()
		if !ok {
			base = s.res.Codec.Defaults()
			if found, _ := s.c.Get(s.cacheKey(), &base); !found {
				base = s.res.Codec.Defaults()
			}
		}
		merged := s.res.Codec.Merge(base, patch)
		s.ready(merged)
		s.mirror(merged)
		s.log.Info().Msg("update stored locally; backend unavailable")
		return Result[T]{OK: true, Data: merged, Fallback: true}
	}

	s.fail(err.Error())
	return Result[T]{Err: err.Error()}
}

// confirm installs a server response into the slot. When mergePatch is
// true the full client patch is merged over the response, so fields the
// server dropped still appear in the reconciled copy.
func (s *Store[T, P]) confirm(raw json.RawMessage, patch P, mergePatch bool) Result[T] {
	data, derr := s.res.Codec.Decode(raw)
	if derr != nil {
		s.log.Warn().Err(derr).Msg("decoding update response")
		s.fail(derr.Error())
		return Result[T]{Err: derr.Error()}
	}
	if mergePatch {
		data = s.res.Codec.Merge(data, patch)
	}
	s.ready(data)
	s.mirror(data)
	return Result[T]{OK: true, Data: data}
}

// CommitIfDirty applies the patch only when it would structurally change
// the current data. A patch that merges to an identical value is a
// no-op success, so leaving edit mode without real edits never writes.
func (s *Store[T, P]) CommitIfDirty(ctx context.Context, patch P) Result[T] {
	if cur, ok := s.Data(); ok {
		if merged := s.res.Codec.Merge(cur, patch); reflect.DeepEqual(merged, cur) {
			return Result[T]{OK: true, Data: cur}
		}
	}
	return s.Update(ctx, patch)
}

// Reset returns the store to its uninitialized state. Called on logout
// and session invalidation.
func (s *Store[T, P]) Reset() {
	s.mu.Lock()
	s.state = State[T]{}
	s.mu.Unlock()
}

func (s *Store[T, P]) setLoading(v bool) {
	s.mu.Lock()
	s.state.Loading = v
	s.mu.Unlock()
}

func (s *Store[T, P]) ready(data T) {
	s.mu.Lock()
	s.state = State[T]{Data: &data}
	s.mu.Unlock()
}

// fail records an error while keeping any previously fetched data
// visible alongside it.
func (s *Store[T, P]) fail(msg string) {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Err = msg
	s.mu.Unlock()
}

func (s *Store[T, P]) mirror(data T) {
	if !s.res.Fallback && !s.res.OfflineWrites {
		return
	}
	if err := s.c.Put(s.cacheKey(), data); err != nil {
		s.log.Warn().Err(err).Msg("mirroring to cache")
	}
}
