// Package normalize converts raw text rows into typed FlowRecords.
package normalize

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/extract"
)

// NormalizationError reports a single field that failed type coercion. The
// whole row is discarded; one bad row never aborts the run.
type NormalizationError struct {
	Field    string
	RawValue string
	Cause    error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize field %q from %q: %v", e.Field, e.RawValue, e.Cause)
}

func (e *NormalizationError) Unwrap() error { return e.Cause }

// columns holds the resolved header labels for the fields we consume.
type columns struct {
	category string
	date     string
	buy      string
	sell     string
	net      string
}

// categoryRow is one parsed body row before the DII/FII merge.
type categoryRow struct {
	category string
	date     time.Time
	buy      decimal.Decimal
	sell     decimal.Decimal
	net      decimal.Decimal
}

// Records normalizes parsed rows into FlowRecords, one per run date. The
// source table carries one row per institution category (DII and FII/FPI);
// both are required to form a record, and a date missing either is skipped.
// Returns the records, the number of rows skipped, and a fatal error only
// when the header itself is unusable.
func Records(res *extract.Result, logger *log.Logger) ([]domain.FlowRecord, int, error) {
	cols, err := resolveColumns(res.Header)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	type pending struct {
		dii, fii *categoryRow
	}
	byDate := make(map[string]*pending)

	for _, raw := range res.Rows {
		row, err := parseRow(raw, cols)
		if err != nil {
			skipped++
			logger.Printf("skip row: %v", err)
			continue
		}

		key := row.date.Format(domain.KeyLayout)
		p := byDate[key]
		if p == nil {
			p = &pending{}
			byDate[key] = p
		}
		switch row.category {
		case "DII":
			p.dii = row
		case "FII":
			p.fii = row
		}
	}

	var records []domain.FlowRecord
	for key, p := range byDate {
		if p.dii == nil || p.fii == nil {
			skipped++
			logger.Printf("skip date %s: missing %s row", key, missingCategory(p.dii))
			continue
		}
		records = append(records, domain.FlowRecord{
			RunDate: p.dii.date,
			DIIBuy:  p.dii.buy,
			DIISell: p.dii.sell,
			DIINet:  p.dii.net,
			FIIBuy:  p.fii.buy,
			FIISell: p.fii.sell,
			FIINet:  p.fii.net,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].RunDate.Before(records[j].RunDate)
	})
	return records, skipped, nil
}

func missingCategory(dii *categoryRow) string {
	if dii == nil {
		return "DII"
	}
	return "FII"
}

func parseRow(raw extract.RawRow, cols columns) (*categoryRow, error) {
	cat := strings.ToUpper(strings.TrimSpace(raw[cols.category]))
	var category string
	switch {
	case strings.HasPrefix(cat, "DII"):
		category = "DII"
	case strings.HasPrefix(cat, "FII"):
		category = "FII"
	default:
		return nil, &NormalizationError{Field: cols.category, RawValue: raw[cols.category],
			Cause: fmt.Errorf("unknown category")}
	}

	// Fixed date format only; locale guessing would accept wrong dates.
	dateText := strings.TrimSpace(raw[cols.date])
	date, err := time.ParseInLocation(domain.DateLayout, dateText, time.UTC)
	if err != nil {
		return nil, &NormalizationError{Field: cols.date, RawValue: dateText, Cause: err}
	}

	buy, err := parseAmount(raw[cols.buy])
	if err != nil {
		return nil, &NormalizationError{Field: cols.buy, RawValue: raw[cols.buy], Cause: err}
	}
	sell, err := parseAmount(raw[cols.sell])
	if err != nil {
		return nil, &NormalizationError{Field: cols.sell, RawValue: raw[cols.sell], Cause: err}
	}

	// The source occasionally leaves Net blank; it is derivable.
	netText := strings.TrimSpace(raw[cols.net])
	var net decimal.Decimal
	if netText == "" {
		net = buy.Sub(sell)
	} else {
		net, err = parseAmount(netText)
		if err != nil {
			return nil, &NormalizationError{Field: cols.net, RawValue: netText, Cause: err}
		}
	}

	return &categoryRow{category: category, date: date, buy: buy, sell: sell, net: net}, nil
}

// parseAmount strips thousands separators and parses a fixed-point decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(cleaned)
}

// resolveColumns maps the rendered header labels onto the fields we need.
// Labels carry a currency annotation ("Buy Value(₹ Crores)"), so matching
// is on a canonical alphanumeric form rather than exact text.
func resolveColumns(header extract.HeaderMap) (columns, error) {
	var cols columns
	for _, label := range header {
		c := canonical(label)
		switch {
		case strings.HasPrefix(c, "category") && cols.category == "":
			cols.category = label
		case strings.HasPrefix(c, "date") && cols.date == "":
			cols.date = label
		case strings.Contains(c, "buy") && cols.buy == "":
			cols.buy = label
		case strings.Contains(c, "sell") && cols.sell == "":
			cols.sell = label
		case strings.Contains(c, "net") && cols.net == "":
			cols.net = label
		}
	}

	missing := []string{}
	for field, label := range map[string]string{
		"category": cols.category,
		"date":     cols.date,
		"buy":      cols.buy,
		"sell":     cols.sell,
		"net":      cols.net,
	} {
		if label == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return columns{}, fmt.Errorf("header missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func canonical(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
