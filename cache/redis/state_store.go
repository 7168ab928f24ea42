package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decagraff/twitch-developer-hub/cache"
	serrors "github.com/decagraff/twitch-developer-hub/errors"
)

// StateStore implements cache.StateStore on Redis so authorization-code
// callbacks can be served by any instance behind a load balancer.
type StateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStateStore creates a redis-backed state store. prefix namespaces the
// keys; ttl bounds how long a flow may sit between redirect and callback.
func NewStateStore(client *redis.Client, prefix string, ttl time.Duration) *StateStore {
	return &StateStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *StateStore) redisKey(state string) string {
	return fmt.Sprintf("%s:oauth_state:%s", s.prefix, state)
}

// Put implements cache.StateStore.Put.
func (s *StateStore) Put(ctx context.Context, state string, pending *cache.PendingAuthorization) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending authorization: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(state), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state in redis: %w", err)
	}
	return nil
}

// Consume implements cache.StateStore.Consume. GETDEL keeps the single-use
// guarantee atomic across instances.
func (s *StateStore) Consume(ctx context.Context, state string) (*cache.PendingAuthorization, error) {
	payload, err := s.client.GetDel(ctx, s.redisKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, serrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read oauth state from redis: %w", err)
	}

	var pending cache.PendingAuthorization
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending authorization: %w", err)
	}
	return &pending, nil
}

// Close implements cache.StateStore.Close. The redis client is owned by the
// caller and closed with the rest of the process.
func (s *StateStore) Close() error {
	return nil
}
