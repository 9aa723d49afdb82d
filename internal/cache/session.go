package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/passvault/passvault/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	// sessionPrefix is the Redis key prefix for sessions.
	sessionPrefix = "session:"
	// sessionGrace keeps a key alive past the idle timeout so expiry is
	// observed by the session manager rather than by a silent Redis miss.
	sessionGrace = 5 * time.Minute
)

// SessionStore keeps sessions in Redis as JSON, keyed by the hashed token.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewSessionStore returns a store whose keys outlive idleTimeout by a
// short grace period. Expiry itself is decided by the caller.
func NewSessionStore(c *Cache, idleTimeout time.Duration) *SessionStore {
	return &SessionStore{cache: c, ttl: idleTimeout + sessionGrace}
}

// Get returns nil, nil when no session is stored under key.
func (s *SessionStore) Get(ctx context.Context, key string) (*model.Session, error) {
	data, err := s.cache.client.Get(ctx, s.cache.key(sessionPrefix, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupted entry - treat as absent
		return nil, nil //nolint:nilerr
	}
	return &sess, nil
}

// Put stores sess under key and refreshes its TTL.
func (s *SessionStore) Put(ctx context.Context, key string, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.cache.client.Set(ctx, s.cache.key(sessionPrefix, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes the session stored under key. Missing keys are not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.cache.client.Del(ctx, s.cache.key(sessionPrefix, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
