// In-memory session store.

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements SessionStore without persistence. State is
// lost when the process exits; intended for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

type memorySession struct {
	snapshot  []byte
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (m *MemoryStore) SaveSession(_ context.Context, id string, snapshot []byte) error {
	if id == "" {
		return fmt.Errorf("session id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(snapshot))
	copy(copied, snapshot)
	m.sessions[id] = memorySession{snapshot: copied, updatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) LoadSession(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]byte, len(session.snapshot))
	copy(copied, session.snapshot)
	return copied, nil
}

func (m *MemoryStore) ListSessions(_ context.Context) ([]SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, SessionInfo{ID: id, UpdatedAt: s.updatedAt})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

var _ SessionStore = (*MemoryStore)(nil)
