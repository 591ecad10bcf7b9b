package repository

import (
	"context"
	"sync"

	"github.com/okian/spindle/internal/domain/model"
)

// MemoryStore is an in-memory Store used by tests and the draw simulator.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []model.OperationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// InsertRecords appends the batch.
func (s *MemoryStore) InsertRecords(_ context.Context, recs []model.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs...)
	return nil
}

// QueryRecords returns records matching the filter.
func (s *MemoryStore) QueryRecords(_ context.Context, f Filter) ([]model.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.OperationRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}
