package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/session"
)

// entry represents a stored snapshot with expiration
type entry struct {
	snapshot  session.Snapshot
	expiresAt time.Time
}

// InMemoryStore implements the snapshot store using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStore creates a new in-memory snapshot store. It starts a
// background goroutine to clean up expired entries.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	store := &InMemoryStore{
		entries:  make(map[string]entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Load returns the stored snapshot for a session, or nil if none exists
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[sessionID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	snapshot := e.snapshot
	return &snapshot, nil
}

// Save stores the snapshot for a session, resetting its TTL
func (s *InMemoryStore) Save(ctx context.Context, sessionID string, snapshot *session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = entry{
		snapshot:  *snapshot,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Clear removes a session's snapshot
func (s *InMemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID)
	return nil
}

// Close stops the cleanup goroutine
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes all expired entries
func (s *InMemoryStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for sessionID, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, sessionID)
		}
	}
}

// Len returns the number of stored snapshots (for testing/monitoring)
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryStore implements the snapshot store port
var _ session.Store = (*InMemoryStore)(nil)
