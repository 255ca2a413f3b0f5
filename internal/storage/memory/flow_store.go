// Package memory provides an in-memory FlowStore for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/storage"
)

// FlowStore is an in-memory implementation of storage.FlowStore. The mutex
// gives it the same serialization property as the Postgres transaction:
// concurrent upserts for one run date resolve to one insert and one touch.
type FlowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FlowRecord // keyed by run date (2006-01-02)
	now  func() time.Time
}

// NewFlowStore creates a new in-memory flow store.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		data: make(map[string]*domain.FlowRecord),
		now:  time.Now,
	}
}

// WithClock overrides the store's clock. Test use only.
func (s *FlowStore) WithClock(now func() time.Time) *FlowStore {
	s.now = now
	return s
}

// Verify interface compliance at compile time.
var _ storage.FlowStore = (*FlowStore)(nil)

// Upsert inserts unknown run dates and touches known ones. The whole batch
// is applied under one lock, mirroring the single-transaction semantics of
// the Postgres store.
func (s *FlowStore) Upsert(_ context.Context, records []domain.FlowRecord) (storage.InsertionOutcome, error) {
	var outcome storage.InsertionOutcome

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, r := range records {
		if r.RunDate.IsZero() {
			return storage.InsertionOutcome{}, storage.ErrInvalidInput
		}
		key := r.Key()

		if existing, ok := s.data[key]; ok {
			// Touch: first write wins for values and inserted_at.
			existing.UpdatedAt = now
			outcome.Touched++
			continue
		}

		stored := r
		stored.RunDate = domain.Date(r.RunDate)
		stored.InsertedAt = now
		stored.UpdatedAt = now
		s.data[key] = &stored

		outcome.AnyNew = true
		outcome.NewDates = append(outcome.NewDates, stored.RunDate)
	}

	sort.Slice(outcome.NewDates, func(i, j int) bool {
		return outcome.NewDates[i].Before(outcome.NewDates[j])
	})
	return outcome, nil
}

// GetByDate retrieves the record for one run date.
func (s *FlowStore) GetByDate(_ context.Context, runDate time.Time) (*domain.FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[domain.Date(runDate).Format(domain.KeyLayout)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	recordCopy := *r
	return &recordCopy, nil
}

// GetRecent retrieves up to limit records, newest run date first.
func (s *FlowStore) GetRecent(_ context.Context, limit int) ([]*domain.FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FlowRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunDate.After(result[j].RunDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
