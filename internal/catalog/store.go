package catalog

import (
	"fmt"
	"sync"
)

// Store holds the active snapshot with thread-safe hot-swap capability.
// Read operations acquire a read lock, allowing concurrent queries. Reload
// builds and validates the new snapshot before acquiring the write lock, so
// a broken catalog file never disturbs the snapshot being served.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	paths   Paths
}

// NewStore loads the initial snapshot from the given paths.
func NewStore(paths Paths) (*Store, error) {
	snap, err := Load(paths)
	if err != nil {
		return nil, fmt.Errorf("catalog: load initial snapshot: %w", err)
	}
	return &Store{current: snap, paths: paths}, nil
}

// NewStoreWithSnapshot wraps an already built snapshot. Used by tests and by
// callers that assemble snapshots themselves.
func NewStoreWithSnapshot(snap *Snapshot) *Store {
	return &Store{current: snap}
}

// Snapshot returns the active snapshot. Requests must take one snapshot and
// use it for their whole lifetime; they must not go back to the store
// mid-request.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap atomically replaces the active snapshot and returns the previous one.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()
	return prev
}

// Reload rebuilds the snapshot from disk and swaps it in. On any load or
// integrity error the active snapshot is left untouched.
func (s *Store) Reload() error {
	if s.paths.Catalog == "" {
		return fmt.Errorf("catalog: store has no reload paths")
	}
	snap, err := Load(s.paths)
	if err != nil {
		return err
	}
	s.Swap(snap)
	return nil
}
