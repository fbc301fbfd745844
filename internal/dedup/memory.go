package dedup

import (
	"context"
	"sync"
)

// MemorySet is a process-local Set guarded by a mutex.
type MemorySet struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	capacity int
	resets   int
}

// NewMemorySet creates an empty in-memory set.
func NewMemorySet(capacity int) *MemorySet {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemorySet{
		ids:      make(map[string]struct{}),
		capacity: capacity,
	}
}

// MarkIfNew implements Set.
func (s *MemorySet) MarkIfNew(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.ids[id]; seen {
		return false, nil
	}
	s.ids[id] = struct{}{}
	if len(s.ids) > s.capacity {
		clear(s.ids)
		s.resets++
	}
	return true, nil
}

// Len implements Set.
func (s *MemorySet) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids), nil
}

// Resets returns how many times the set was cleared.
func (s *MemorySet) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Ping implements Set.
func (s *MemorySet) Ping(_ context.Context) error { return nil }

// Close implements Set.
func (s *MemorySet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
	return nil
}
