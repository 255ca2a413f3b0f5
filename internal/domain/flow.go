// Package domain defines the core data types shared across the pipeline.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of the Date column on the source table,
// e.g. "03-Jan-2025". Any other format is rejected.
const DateLayout = "02-Jan-2006"

// KeyLayout is the canonical string form of a run date used for map keys
// and log output.
const KeyLayout = "2006-01-02"

// FlowRecord is one day of FII/DII equity cash-market activity.
// Corresponds to the fii_dii_eq_flows table in PostgreSQL, keyed by RunDate.
type FlowRecord struct {
	RunDate time.Time // date only, normalized to midnight UTC

	DIIBuy  decimal.Decimal // ₹ crores
	DIISell decimal.Decimal
	DIINet  decimal.Decimal
	FIIBuy  decimal.Decimal
	FIISell decimal.Decimal
	FIINet  decimal.Decimal

	InsertedAt time.Time // set once on first insert, immutable afterwards
	UpdatedAt  time.Time // refreshed on every run that re-observes RunDate
}

// Key returns the canonical string form of the record's run date.
func (r FlowRecord) Key() string {
	return r.RunDate.Format(KeyLayout)
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
