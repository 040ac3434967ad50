// Package wishlist manages the medication wishlist. Unlike the
// single-record resources it is a collection keyed by medication, with
// idempotent adds and an offline-first read/mutate policy.
package wishlist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Path is the wishlist collection endpoint.
const Path = "/api/patient/wishlist"

// CacheKey names the collection in cache keys.
const CacheKey = "wishlist"

// Store holds the wishlist collection for the current session. Every
// successful read or mutation is mirrored to the local cache, and every
// failed one is resolved against it, so the list survives the backend
// going away mid-session.
type Store struct {
	gw   store.Gateway
	c    *cache.Cache
	sess store.SessionSource
	log  zerolog.Logger

	mu    sync.Mutex
	state store.State[[]Item]
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	s := &Store{gw: gw, c: c, sess: sess, log: log.With().Str("resource", CacheKey).Logger()}
	sess.Subscribe(s.Reset)
	return s
}

// State returns a copy of the current slot.
func (s *Store) State() store.State[[]Item] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Items returns the current collection, empty until the first Fetch.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Data == nil {
		return []Item{}
	}
	return append([]Item(nil), *s.state.Data...)
}

// IsInWishlist reports whether the medication is wishlisted. Membership
// is decided by medication id, not by wishlist-entry id.
func (s *Store) IsInWishlist(medicationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Data == nil {
		return false
	}
	for _, it := range *s.state.Data {
		if it.MedicationID == medicationID {
			return true
		}
	}
	return false
}

func (s *Store) find(medicationID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Data == nil {
		return Item{}, false
	}
	for _, it := range *s.state.Data {
		if it.MedicationID == medicationID {
			return it, true
		}
	}
	return Item{}, false
}

func (s *Store) cacheKey() string {
	return cache.Key(CacheKey, s.sess.UserID())
}

// Fetch loads the collection. Any failure falls back to the cached
// copy, or an empty list when none exists; the error is cleared either
// way.
func (s *Store) Fetch(ctx context.Context) {
	s.setLoading(true)

	var raw json.RawMessage
	err := s.gw.Get(ctx, Path, &raw)
	if err == nil {
		items, derr := decodeItems(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("decoding wishlist")
			s.fail(derr.Error())
			return
		}
		s.ready(items)
		s.mirror(items)
		return
	}

	items := []Item{}
	if found, cerr := s.c.Get(s.cacheKey(), &items); cerr == nil && found {
		s.log.Debug().Msg("serving cached wishlist")
	} else {
		items = []Item{}
	}
	s.ready(items)
}

// Add wishlists a medication. Adding one that is already present is a
// no-op returning the existing entry; a duplicate rejected server-side
// resolves the same way, synthesizing a local entry if the collection
// has drifted. A transport failure falls back to a locally synthesized
// entry reported with Fallback set.
func (s *Store) Add(ctx context.Context, med Medication) store.Result[Item] {
	if existing, ok := s.find(med.ID); ok {
		return store.Result[Item]{OK: true, Data: existing}
	}

	var raw json.RawMessage
	err := s.gw.Post(ctx, Path, map[string]any{"medication_id": med.ID}, &raw)
	if err == nil {
		item, derr := decodeItem(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Msg("decoding wishlist entry")
			return store.Result[Item]{Err: derr.Error()}
		}
		if item.MedicationID == "" {
			item = s.synthesize(med)
		}
		s.append(item)
		return store.Result[Item]{OK: true, Data: item}
	}

	if gateway.IsConflict(err) {
		// The server already has it but our copy does not; reconcile
		// with a synthesized entry rather than surfacing the rejection.
		item := s.synthesize(med)
		s.append(item)
		return store.Result[Item]{OK: true, Data: item}
	}

	if gateway.IsNetwork(err) || gateway.IsNotFound(err) {
		item := s.synthesize(med)
		s.append(item)
		s.log.Info().Str("medication", med.ID).Msg("wishlist add stored locally; backend unavailable")
		return store.Result[Item]{OK: true, Data: item, Fallback: true}
	}

	s.log.Warn().Err(err).Msg("wishlist add failed")
	return store.Result[Item]{Err: err.Error()}
}

// Remove drops the entry with the given wishlist-entry id. A 404 from
// the server and a transport failure both resolve locally: the entry is
// gone from this client either way.
func (s *Store) Remove(ctx context.Context, entryID string) store.Result[Item] {
	err := s.gw.Delete(ctx, Path+"/"+entryID, nil)
	if err != nil && !gateway.IsNotFound(err) && !gateway.IsNetwork(err) {
		s.log.Warn().Err(err).Msg("wishlist remove failed")
		return store.Result[Item]{Err: err.Error()}
	}

	fallback := gateway.IsNetwork(err)
	s.mu.Lock()
	if s.state.Data != nil {
		// Filter into a fresh slice; earlier State snapshots alias the
		// old backing array and must not see it shuffled.
		items := *s.state.Data
		kept := make([]Item, 0, len(items))
		for _, it := range items {
			if it.ID != entryID {
				kept = append(kept, it)
			}
		}
		s.state = store.State[[]Item]{Data: &kept}
	}
	var snapshot []Item
	if s.state.Data != nil {
		snapshot = *s.state.Data
	}
	s.mu.Unlock()

	if snapshot != nil {
		s.mirror(snapshot)
	}
	return store.Result[Item]{OK: true, Fallback: fallback}
}

// Clear empties the whole wishlist.
func (s *Store) Clear(ctx context.Context) store.Result[Item] {
	err := s.gw.Delete(ctx, Path, nil)
	if err != nil && !gateway.IsNotFound(err) && !gateway.IsNetwork(err) {
		s.log.Warn().Err(err).Msg("wishlist clear failed")
		return store.Result[Item]{Err: err.Error()}
	}

	empty := []Item{}
	s.ready(empty)
	s.mirror(empty)
	return store.Result[Item]{OK: true, Fallback: gateway.IsNetwork(err)}
}

// Reset returns the store to its uninitialized state. Called on logout
// and session invalidation.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = store.State[[]Item]{}
	s.mu.Unlock()
}

// synthesize builds a local entry from the storefront card, used when
// the server cannot supply the canonical one.
func (s *Store) synthesize(med Medication) Item {
	return Item{
		ID:                   uuid.NewString(),
		MedicationID:         med.ID,
		Name:                 med.Name,
		Dosage:               med.Dosage,
		Price:                med.Price,
		Category:             med.Category,
		ImageURL:             med.ImageURL,
		InStock:              med.InStock,
		RequiresPrescription: med.RequiresPrescription,
		Rating:               med.Rating,
		Reviews:              med.Reviews,
		AddedDate:            time.Now().UTC().Format(time.RFC3339),
		Availability:         med.Availability,
		StockCount:           med.StockCount,
	}
}

func (s *Store) append(item Item) {
	s.mu.Lock()
	var items []Item
	if s.state.Data != nil {
		items = append(items, *s.state.Data...)
	}
	items = append(items, item)
	s.state = store.State[[]Item]{Data: &items}
	s.mu.Unlock()
	s.mirror(items)
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.state.Loading = v
	s.mu.Unlock()
}

func (s *Store) ready(items []Item) {
	s.mu.Lock()
	s.state = store.State[[]Item]{Data: &items}
	s.mu.Unlock()
}

func (s *Store) fail(msg string) {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Err = msg
	s.mu.Unlock()
}

func (s *Store) mirror(items []Item) {
	if err := s.c.Put(s.cacheKey(), items); err != nil {
		s.log.Warn().Err(err).Msg("mirroring wishlist to cache")
	}
}
