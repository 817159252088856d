package store

import (
	"sync"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

var (
	// ErrNotFound is returned when no position has been stored yet.
	ErrNotFound = geotag.ErrNoData
)

// MemoryStore is a concurrency-safe, single-slot position store.
// It keeps no history; every Save replaces the previous record as a whole.
type MemoryStore struct {
	mu sync.RWMutex

	latest *geotag.Position
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save overwrites the stored position.
func (s *MemoryStore) Save(p geotag.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &p
}

// GetLatest returns a copy of the stored position, or ErrNotFound when empty.
func (s *MemoryStore) GetLatest() (geotag.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return geotag.Position{}, ErrNotFound
	}
	return *s.latest, nil
}
