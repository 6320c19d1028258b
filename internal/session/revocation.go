package session

import (
	"context"
	"sync"
	"time"

	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked token ids until they would have expired.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore keeps revoked ids in process memory.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore returns an empty in-process store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, until := range m.entries {
		if !now.Before(until) {
			delete(m.entries, id)
		}
	}
	m.entries[tokenID] = now.Add(ttl)
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// RedisRevocationStore keeps revoked ids in Redis under "blacklist:<jti>" and
// falls back to process memory when Redis is missing or failing.
type RedisRevocationStore struct {
	client   *redis.Client
	fallback *MemoryRevocationStore
}

// NewRedisRevocationStore returns a store backed by client, which may be nil.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:   client,
		fallback: NewMemoryRevocationStore(),
	}
}

func blacklistKey(tokenID string) string {
	return "blacklist:" + tokenID
}

func (r *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	// Recorded locally first; Redis shares it with other processes.
	_ = r.fallback.Revoke(ctx, tokenID, ttl)
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "session revocation not stored in Redis", "error", err)
	}
	return nil
}

func (r *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if revoked, _ := r.fallback.IsRevoked(ctx, tokenID); revoked {
		return true, nil
	}
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "session revocation lookup failed", "error", err)
		return false, nil
	}
	return n > 0, nil
}
