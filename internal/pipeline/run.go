// Package pipeline wires one run end to end: render, wait, parse,
// normalize, upsert, and (only on first insertion) notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/extract"
	"nse-flow-watch/internal/normalize"
	"nse-flow-watch/internal/observability"
	"nse-flow-watch/internal/storage"
)

// ErrNoUsableData means every scraped row was rejected. This is a distinct
// failure, never silent success: an empty batch after a reachable table
// usually indicates a source format change.
var ErrNoUsableData = errors.New("no usable data: zero rows survived parsing and normalization")

// TableFetcher produces the stabilized target table as HTML.
type TableFetcher interface {
	FetchTable(ctx context.Context) (string, error)
}

// Notifier delivers an alert for newly inserted records.
type Notifier interface {
	Notify(ctx context.Context, records []domain.FlowRecord) error
}

// Result summarizes what one run did.
type Result struct {
	RowsParsed  int
	RowsSkipped int
	Records     int
	NewDates    []time.Time
	Touched     int
	Notified    bool
}

// Runner executes the pipeline. One Runner performs one logical unit of
// work per Run call; it holds no state across runs.
type Runner struct {
	fetcher  TableFetcher
	store    storage.FlowStore
	notifier Notifier
	metrics  *observability.Metrics
	logger   *log.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(fetcher TableFetcher, store storage.FlowStore, notifier Notifier, logger *log.Logger) *Runner {
	return &Runner{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// WithMetrics attaches Prometheus metrics to the runner.
func (r *Runner) WithMetrics(m *observability.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes one full pipeline pass. Row-level faults are contained and
// counted; every other fault aborts the run. Notification failures surface
// as the run's terminal error, but only after persistence has already
// durably succeeded.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	res, err := r.run(ctx)
	if r.metrics != nil {
		r.metrics.RunDuration.Observe(time.Since(start).Seconds())
		r.metrics.RunsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		if err == nil {
			r.metrics.LastSuccessfulRun.SetToCurrentTime()
		}
	}
	return res, err
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	html, err := r.fetcher.FetchTable(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := extract.ParseTable(html, r.logger)
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}

	records, normSkipped, err := normalize.Records(parsed, r.logger)
	if err != nil {
		return nil, fmt.Errorf("normalize rows: %w", err)
	}

	result := &Result{
		RowsParsed:  len(parsed.Rows),
		RowsSkipped: parsed.Skipped + normSkipped,
		Records:     len(records),
	}
	if r.metrics != nil {
		r.metrics.RowsParsed.Add(float64(result.RowsParsed))
		r.metrics.RowsSkipped.Add(float64(result.RowsSkipped))
	}
	if len(records) == 0 {
		return result, ErrNoUsableData
	}

	outcome, err := r.store.Upsert(ctx, records)
	if err != nil {
		return result, fmt.Errorf("persist records: %w", err)
	}
	result.NewDates = outcome.NewDates
	result.Touched = outcome.Touched
	if r.metrics != nil {
		r.metrics.RecordsInserted.Add(float64(len(outcome.NewDates)))
		r.metrics.RecordsTouched.Add(float64(outcome.Touched))
	}

	if !outcome.AnyNew {
		r.logger.Printf("no new data: %d record(s) already known, updated_at refreshed", outcome.Touched)
		return result, nil
	}

	newRecords := filterByDates(records, outcome.NewDates)
	r.logger.Printf("inserted %d new record(s), notifying", len(newRecords))

	// Data is durable at this point; a notification failure loses nothing
	// but still fails the run so a missing credential is visible.
	if err := r.notifier.Notify(ctx, newRecords); err != nil {
		return result, err
	}
	result.Notified = true
	if r.metrics != nil {
		r.metrics.NotificationsSent.Inc()
	}
	return result, nil
}

// filterByDates keeps only the records whose run date was newly inserted;
// the notification payload must contain nothing already known.
func filterByDates(records []domain.FlowRecord, dates []time.Time) []domain.FlowRecord {
	keep := make(map[string]bool, len(dates))
	for _, d := range dates {
		keep[d.Format(domain.KeyLayout)] = true
	}

	var out []domain.FlowRecord
	for _, r := range records {
		if keep[r.Key()] {
			out = append(out, r)
		}
	}
	return out
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoUsableData):
		return "no_usable_data"
	default:
		return "error"
	}
}
