// Package sessionstore persists interaction stack snapshots across requests.
// Snapshots are opaque byte blobs keyed by session id; the stack package owns
// their encoding.
package sessionstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("sessionstore: session not found")

// Store persists session snapshots. Implementations may keep them in memory
// or in an external service such as Redis.
type Store interface {
	Save(ctx context.Context, sessionID string, snapshot []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
}

// memoryStore implements Store with a mutex-guarded map. It is the default
// strategy for single-process deployments.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

type memoryEntry struct {
	snapshot []byte
	expires  time.Time
}

// NewMemoryStore returns a memory-backed Store. A zero ttl means snapshots
// never expire.
func NewMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{sessions: make(map[string]memoryEntry), ttl: ttl}
}

func (m *memoryStore) Save(_ context.Context, sessionID string, snapshot []byte) error {
	cp := make([]byte, len(snapshot))
	copy(cp, snapshot)
	entry := memoryEntry{snapshot: cp}
	if m.ttl > 0 {
		entry.expires = time.Now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sessions[sessionID] = entry
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	cp := make([]byte, len(entry.snapshot))
	copy(cp, entry.snapshot)
	return cp, nil
}

func (m *memoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
