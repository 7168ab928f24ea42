package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

// MemoryStateStore implements StateStore with ttlcache. Suitable for a single
// server instance; multi-instance deployments use the redis store so the
// callback can land on any instance.
type MemoryStateStore struct {
	cache *ttlcache.Cache[string, *PendingAuthorization]
}

// NewMemoryStateStore creates an in-memory state store whose entries expire
// after ttl.
//
//nolint:ireturn
func NewMemoryStateStore(ttl time.Duration) StateStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *PendingAuthorization](ttl),
		ttlcache.WithDisableTouchOnHit[string, *PendingAuthorization](),
	)

	go c.Start()

	return &MemoryStateStore{cache: c}
}

// Put implements StateStore.Put.
func (s *MemoryStateStore) Put(_ context.Context, state string, pending *PendingAuthorization) error {
	s.cache.Set(state, pending, ttlcache.DefaultTTL)
	return nil
}

// Consume implements StateStore.Consume. Retrieval and removal are a single
// atomic step so concurrent callbacks racing on the same state cannot both
// win.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (*PendingAuthorization, error) {
	item, present := s.cache.GetAndDelete(state)
	if !present || item == nil || item.IsExpired() {
		return nil, serrors.ErrStateNotFound
	}
	return item.Value(), nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStateStore) Close() error {
	s.cache.Stop()
	return nil
}
