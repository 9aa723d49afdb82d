package session

import (
	"context"
	"sync"

	"github.com/passvault/passvault/internal/model"
)

// Store persists sessions by key. Implementations must be safe for
// concurrent use. Get returns nil, nil for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) (*model.Session, error)
	Put(ctx context.Context, key string, sess *model.Session) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process memory. Sessions do not survive
// a restart and are not shared between instances.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *sess
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
