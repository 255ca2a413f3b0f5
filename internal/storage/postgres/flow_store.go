package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/storage"
)

// FlowStore implements storage.FlowStore using PostgreSQL.
type FlowStore struct {
	pool *Pool
}

// NewFlowStore creates a new FlowStore.
func NewFlowStore(pool *Pool) *FlowStore {
	return &FlowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FlowStore = (*FlowStore)(nil)

// upsertSQL inserts a new day or, on conflict, refreshes updated_at only.
// Value columns and inserted_at are never touched for an existing key:
// first write wins for the financial values. The (xmax = 0) check tells an
// insert apart from a conflict-update on the same statement, and the
// ON CONFLICT clause is what serializes concurrent runs for the same date
// without surfacing a duplicate-key fault.
const upsertSQL = `
	INSERT INTO fii_dii_eq_flows (
		run_date, dii_buy, dii_sell, dii_net, fii_buy, fii_sell, fii_net, inserted_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	ON CONFLICT (run_date) DO UPDATE SET updated_at = now()
	RETURNING (xmax = 0)
`

const selectColumns = `
	run_date, dii_buy::text, dii_sell::text, dii_net::text,
	fii_buy::text, fii_sell::text, fii_net::text, inserted_at, updated_at
`

// Upsert applies the batch inside one transaction: all records are durably
// applied or none are.
func (s *FlowStore) Upsert(ctx context.Context, records []domain.FlowRecord) (storage.InsertionOutcome, error) {
	var outcome storage.InsertionOutcome
	if len(records) == 0 {
		return outcome, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return outcome, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		var inserted bool
		err := tx.QueryRow(ctx, upsertSQL,
			r.RunDate,
			r.DIIBuy.String(),
			r.DIISell.String(),
			r.DIINet.String(),
			r.FIIBuy.String(),
			r.FIISell.String(),
			r.FIINet.String(),
		).Scan(&inserted)
		if err != nil {
			return storage.InsertionOutcome{}, fmt.Errorf("upsert flow %s: %w", r.Key(), err)
		}

		if inserted {
			outcome.AnyNew = true
			outcome.NewDates = append(outcome.NewDates, domain.Date(r.RunDate))
		} else {
			outcome.Touched++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.InsertionOutcome{}, fmt.Errorf("commit upsert tx: %w", err)
	}
	return outcome, nil
}

// GetByDate retrieves the record for one run date.
func (s *FlowStore) GetByDate(ctx context.Context, runDate time.Time) (*domain.FlowRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM fii_dii_eq_flows WHERE run_date = $1`

	r, err := scanFlow(s.pool.QueryRow(ctx, query, domain.Date(runDate)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get flow by date: %w", err)
	}
	return r, nil
}

// GetRecent retrieves up to limit records, newest run date first.
func (s *FlowStore) GetRecent(ctx context.Context, limit int) ([]*domain.FlowRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM fii_dii_eq_flows ORDER BY run_date DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent flows: %w", err)
	}
	defer rows.Close()

	var records []*domain.FlowRecord
	for rows.Next() {
		r, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow rows: %w", err)
	}
	return records, nil
}

// scanFlow scans one row into a FlowRecord. Numerics travel as text and
// parse into decimals to avoid float rounding on money values.
func scanFlow(row pgx.Row) (*domain.FlowRecord, error) {
	var r domain.FlowRecord
	var diiBuy, diiSell, diiNet, fiiBuy, fiiSell, fiiNet string

	err := row.Scan(
		&r.RunDate,
		&diiBuy, &diiSell, &diiNet,
		&fiiBuy, &fiiSell, &fiiNet,
		&r.InsertedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&r.DIIBuy, diiBuy}, {&r.DIISell, diiSell}, {&r.DIINet, diiNet},
		{&r.FIIBuy, fiiBuy}, {&r.FIISell, fiiSell}, {&r.FIINet, fiiNet},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse stored numeric %q: %w", f.src, err)
		}
		*f.dst = d
	}

	r.RunDate = domain.Date(r.RunDate)
	return &r, nil
}
