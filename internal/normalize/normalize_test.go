package normalize

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-flow-watch/internal/extract"
)

var discard = log.New(io.Discard, "", 0)

func sampleResult() *extract.Result {
	return &extract.Result{
		Header: extract.HeaderMap{"Category", "Date", "Buy Value(₹ Crores)", "Sell Value (₹ Crores)", "Net Value (₹ Crores)"},
		Rows: []extract.RawRow{
			{
				"Category":              "DII",
				"Date":                  "02-Jan-2025",
				"Buy Value(₹ Crores)":   "1,000.50",
				"Sell Value (₹ Crores)": "900.25",
				"Net Value (₹ Crores)":  "100.25",
			},
			{
				"Category":              "FII/FPI *",
				"Date":                  "02-Jan-2025",
				"Buy Value(₹ Crores)":   "2,000.00",
				"Sell Value (₹ Crores)": "2,100.00",
				"Net Value (₹ Crores)":  "-100.00",
			},
		},
	}
}

func TestRecords(t *testing.T) {
	records, skipped, err := Records(sampleResult(), discard)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, skipped)

	r := records[0]
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), r.RunDate)
	assert.True(t, r.DIIBuy.Equal(decimal.RequireFromString("1000.50")), "dii buy %s", r.DIIBuy)
	assert.True(t, r.DIISell.Equal(decimal.RequireFromString("900.25")))
	assert.True(t, r.DIINet.Equal(decimal.RequireFromString("100.25")))
	assert.True(t, r.FIIBuy.Equal(decimal.RequireFromString("2000.00")))
	assert.True(t, r.FIISell.Equal(decimal.RequireFromString("2100.00")))
	assert.True(t, r.FIINet.Equal(decimal.RequireFromString("-100.00")))
}

func TestRecords_BlankNetDerived(t *testing.T) {
	res := sampleResult()
	res.Rows[1]["Net Value (₹ Crores)"] = ""

	records, skipped, err := Records(res, discard)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, skipped)
	assert.True(t, records[0].FIINet.Equal(decimal.RequireFromString("-100.00")))
}

func TestRecords_BadDecimalSkipsRowOnly(t *testing.T) {
	res := sampleResult()
	res.Rows[1]["Buy Value(₹ Crores)"] = "n/a"

	records, skipped, err := Records(res, discard)
	require.NoError(t, err)

	// The bad FII row is gone, which leaves the date incomplete as well.
	assert.Empty(t, records)
	assert.Equal(t, 2, skipped)
}

func TestRecords_RowIsolation(t *testing.T) {
	res := sampleResult()
	res.Rows = append(res.Rows,
		extract.RawRow{
			"Category":              "DII",
			"Date":                  "03-Jan-2025",
			"Buy Value(₹ Crores)":   "not-a-number",
			"Sell Value (₹ Crores)": "1.00",
			"Net Value (₹ Crores)":  "1.00",
		},
	)

	records, skipped, err := Records(res, discard)
	require.NoError(t, err)

	// The valid date survives; only the bad row (and its orphaned date)
	// is counted as skipped.
	require.Len(t, records, 1)
	assert.Equal(t, "2025-01-02", records[0].Key())
	assert.Equal(t, 1, skipped)
}

func TestRecords_WrongDateFormatRejected(t *testing.T) {
	res := sampleResult()
	res.Rows[0]["Date"] = "2025-01-02"

	records, skipped, err := Records(res, discard)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 2, skipped)
}

func TestRecords_MissingColumnFatal(t *testing.T) {
	res := sampleResult()
	res.Header = extract.HeaderMap{"Category", "Date"}

	_, _, err := Records(res, discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestNormalizationError_Fields(t *testing.T) {
	err := &NormalizationError{Field: "Date", RawValue: "garbage", Cause: assert.AnError}
	assert.Contains(t, err.Error(), "Date")
	assert.Contains(t, err.Error(), "garbage")
}
