package insurance

import (
	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Path is the insurance resource endpoint.
const Path = "/api/patient/insurance"

type Store struct {
	*store.Store[Insurance, Patch]
}

// NewStore builds the insurance store. Updates carrying SHA-specific
// fields degrade gracefully against older server contracts: a 422 is
// retried once with the base fields only, and the SHA fields are merged
// locally into the result.
func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	return &Store{store.New(store.Resource[Insurance, Patch]{
		Key:           "insurance",
		Path:          Path,
		Codec:         Codec{},
		Fallback:      true,
		OfflineWrites: true,
		ReducePatch: func(p Patch) (Patch, bool) {
			if !p.hasShaFields() {
				return p, false
			}
			return p.baseOnly(), true
		},
	}, gw, c, sess, log)}
}
