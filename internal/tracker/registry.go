package tracker

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize bounds how many trackers a Registry keeps open.
const DefaultRegistrySize = 10000

// Registry hands out one Tracker per user, opening it from the shared
// Store on first use. Least recently used trackers are dropped once the
// registry is full; their state is already persisted and is reloaded on
// the next Get.
//
// A Registry assumes it is the only writer for its keys: trackers are not
// reloaded from the Store while they stay cached.
type Registry struct {
	store    Store
	prefix   string
	opts     []Option
	mu       sync.Mutex
	trackers *lru.Cache[string, *Tracker]
}

func NewRegistry(store Store, keyPrefix string, opts ...Option) *Registry {
	return NewRegistrySize(store, keyPrefix, DefaultRegistrySize, opts...)
}

// NewRegistrySize is NewRegistry with an explicit capacity. A size below 1
// falls back to DefaultRegistrySize.
func NewRegistrySize(store Store, keyPrefix string, size int, opts ...Option) *Registry {
	if size < 1 {
		size = DefaultRegistrySize
	}
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, *Tracker](size)
	return &Registry{
		store:    store,
		prefix:   keyPrefix,
		opts:     opts,
		trackers: cache,
	}
}

// Len returns the number of cached trackers.
func (r *Registry) Len() int {
	return r.trackers.Len()
}

// Get returns the tracker for userID, applying the new-day task reset.
func (r *Registry) Get(ctx context.Context, userID string) *Tracker {
	r.mu.Lock()
	t, ok := r.trackers.Get(userID)
	if !ok {
		t = Open(ctx, r.store, r.prefix+userID, r.opts...)
		r.trackers.Add(userID, t)
	}
	r.mu.Unlock()

	// a save failure here is already logged; the tracker stays usable
	_, _ = t.ResetDailyTasksIfNewDay(ctx)
	return t
}
