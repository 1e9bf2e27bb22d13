package fundamentals

import (
	"context"
	"sync"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

// MemoryStore is a process-local Store used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.FundamentalsRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.FundamentalsRecord)}
}

func (s *MemoryStore) Get(_ context.Context, symbol string) (*model.FundamentalsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "fundamentals %s", symbol)
	}
	return &rec, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec model.FundamentalsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Symbol] = rec
	return nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}
