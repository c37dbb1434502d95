package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/redis"
)

// Store persists the whole line set of a cart as one blob.
type Store interface {
	Load(ctx context.Context, cartID string) ([]Line, error)
	Save(ctx context.Context, cartID string, lines []Line) error
}

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(cartID string) string
}

// RedisStore keeps carts in Redis with a sliding TTL refreshed on every save.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisStore builds a store backed by the shared Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the stored lines, or none when the cart does not exist.
func (s *RedisStore) Load(ctx context.Context, cartID string) ([]Line, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(cartID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "load cart")
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "decode cart")
	}
	return lines, nil
}

// Save replaces the stored lines. An empty cart deletes the key.
func (s *RedisStore) Save(ctx context.Context, cartID string, lines []Line) error {
	key := s.client.CartKey(cartID)
	if len(lines) == 0 {
		if err := s.client.Del(ctx, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "delete cart")
		}
		return nil
	}

	payload, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.client.Set(ctx, key, payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceUnavailable, err, "save cart")
	}
	return nil
}

// MemoryStore keeps carts in process memory. It backs the API when Redis is
// not configured and doubles as the test store.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]Line
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Line)}
}

func (s *MemoryStore) Load(_ context.Context, cartID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.carts[cartID]), nil
}

func (s *MemoryStore) Save(_ context.Context, cartID string, lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(lines) == 0 {
		delete(s.carts, cartID)
		return nil
	}
	s.carts[cartID] = cloneLines(lines)
	return nil
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
