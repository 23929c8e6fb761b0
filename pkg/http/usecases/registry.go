package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
)

type registryEntry struct {
	search *engine.Search
	cancel context.CancelFunc
}

// SearchRegistry keeps the searches started by the polling api until their result is delivered.
// entries that are never polled to completion expire after ttl and their search is cancelled.
type SearchRegistry struct {
	cache *expirable.LRU[string, *registryEntry]
}

func NewSearchRegistry(size int, ttl time.Duration) *SearchRegistry {
	onEvict := func(_ string, e *registryEntry) {
		e.cancel()
	}
	return &SearchRegistry{
		cache: expirable.NewLRU[string, *registryEntry](size, onEvict, ttl),
	}
}

func (r *SearchRegistry) Add(search *engine.Search, cancel context.CancelFunc) string {
	id := uuid.NewString()
	r.cache.Add(id, &registryEntry{search: search, cancel: cancel})
	return id
}

func (r *SearchRegistry) Get(id string) (*engine.Search, bool) {
	e, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return e.search, true
}

func (r *SearchRegistry) Remove(id string) {
	r.cache.Remove(id)
}

func (r *SearchRegistry) Len() int {
	return r.cache.Len()
}
