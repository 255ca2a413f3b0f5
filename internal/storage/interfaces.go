// Package storage defines the persistence contracts for flow records.
package storage

import (
	"context"
	"time"

	"nse-flow-watch/internal/domain"
)

// InsertionOutcome reports what one upsert batch did. AnyNew is the
// notification gate: only a run that inserted at least one previously
// unknown run date triggers a notification.
type InsertionOutcome struct {
	AnyNew   bool
	NewDates []time.Time // run dates inserted for the first time, ascending
	Touched  int         // records already present whose updated_at was refreshed
}

// FlowStore is the sole arbiter of insert-vs-touch decisions. No other
// component mutates persisted state.
type FlowStore interface {
	// Upsert applies the whole batch in one atomic transaction. Per
	// record: an absent run_date is inserted with inserted_at =
	// updated_at = now; a present run_date gets only its updated_at
	// refreshed, never its values or inserted_at. Concurrent calls for
	// the same run_date serialize so that exactly one observes the
	// insert; the other resolves to the touch path without a
	// duplicate-key fault.
	Upsert(ctx context.Context, records []domain.FlowRecord) (InsertionOutcome, error)

	// GetByDate retrieves the record for one run date. Returns
	// ErrNotFound if the date has never been observed.
	GetByDate(ctx context.Context, runDate time.Time) (*domain.FlowRecord, error)

	// GetRecent retrieves up to limit records, newest run date first.
	GetRecent(ctx context.Context, limit int) ([]*domain.FlowRecord, error)
}
