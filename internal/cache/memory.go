package cache

import (
	"context"
	"sync"
	"time"

	"github.com/brieflyhq/briefly/pkg/models"
)

type memoryEntry struct {
	newsletter *models.Newsletter
	expiresAt  time.Time
}

// MemoryStore is a thread-safe in-memory Store. It backs cacheless runs and
// tests, and substitutes for Redis when no connection string is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use this to step past TTLs.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Get returns the cached newsletter, or ErrMiss when absent or expired.
func (s *MemoryStore) Get(ctx context.Context, profession string, window models.TimeWindow) (*models.Newsletter, error) {
	s.mu.RLock()
	entry, ok := s.entries[Key(profession, window)]
	now := s.now()
	s.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		return nil, ErrMiss
	}
	return entry.newsletter, nil
}

// Put stores the newsletter with the window's TTL, overwriting any entry.
func (s *MemoryStore) Put(ctx context.Context, n *models.Newsletter) error {
	s.mu.Lock()
	s.entries[Key(n.Profession, n.Window)] = memoryEntry{
		newsletter: n,
		expiresAt:  s.now().Add(n.Window.TTL()),
	}
	s.mu.Unlock()
	return nil
}

// Delete removes the entry for the key, if any.
func (s *MemoryStore) Delete(ctx context.Context, profession string, window models.TimeWindow) error {
	s.mu.Lock()
	delete(s.entries, Key(profession, window))
	s.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Stats reports the number of live entries.
func (s *MemoryStore) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var live int64
	now := s.now()
	for _, e := range s.entries {
		if !now.After(e.expiresAt) {
			live++
		}
	}
	return Stats{Backend: "memory", Connected: true, Newsletters: live}
}
