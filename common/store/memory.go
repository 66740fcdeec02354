package store

import (
	"context"
	"sync"

	"github.com/kitgore/lyrictype-sub002/common/models"
)

// MemoryStore keeps records in process memory. It is the default
// backend for development and the substrate for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.ImageRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.ImageRecord),
	}
}

func memKey(collection, id string) string {
	return collection + "/" + id
}

// Get returns a copy of the stored record so callers cannot mutate the
// store through the result.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*models.ImageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[memKey(collection, id)]
	if !ok {
		return nil, false, nil
	}
	out := rec
	if rec.Stats != nil {
		stats := *rec.Stats
		out.Stats = &stats
	}
	return &out, true, nil
}

// Set stores a copy of rec.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if rec.Stats != nil {
		stats := *rec.Stats
		stored.Stats = &stats
	}
	s.records[memKey(collection, id)] = stored
	return nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored records, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
