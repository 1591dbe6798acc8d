package bulkimport

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Staging holds parsed row batches between a dry run and its commit, keyed by
// an opaque handle instead of a server-side temp file path, so the two calls
// need not share session state. Batches expire if never committed.
type Staging struct {
	batches *cache.Cache
}

func NewStaging(ttl time.Duration) *Staging {
	return &Staging{
		batches: cache.New(ttl, ttl),
	}
}

// Stage stores a parsed batch and returns its handle.
func (s *Staging) Stage(rows []Row) string {
	handle := uuid.NewString()
	s.batches.Set(handle, rows, cache.DefaultExpiration)
	return handle
}

// Fetch returns the staged batch for a handle, if it has not expired.
func (s *Staging) Fetch(handle string) ([]Row, bool) {
	v, found := s.batches.Get(handle)
	if !found {
		return nil, false
	}
	return v.([]Row), true
}

// Discard drops a staged batch once committed or abandoned.
func (s *Staging) Discard(handle string) {
	s.batches.Delete(handle)
}
