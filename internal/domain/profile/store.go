package profile

import (
	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Path is the profile resource endpoint.
const Path = "/api/patient/profile"

// Store wraps the generic engine with the profile resource policy:
// fall back to cache-or-defaults when the endpoint is unavailable, and
// accept offline writes.
type Store struct {
	*store.Store[Profile, Patch]
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	return &Store{store.New(store.Resource[Profile, Patch]{
		Key:           "profile",
		Path:          Path,
		Codec:         Codec{},
		Fallback:      true,
		OfflineWrites: true,
	}, gw, c, sess, log)}
}
