package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/notify"
	"nse-flow-watch/internal/storage/memory"
)

var discard = log.New(io.Discard, "", 0)

const goodTable = `
<table>
  <thead>
    <tr><th>Category</th><th>Date</th><th>Buy Value(₹ Crores)</th><th>Sell Value (₹ Crores)</th><th>Net Value (₹ Crores)</th></tr>
  </thead>
  <tbody>
    <tr><td>DII **</td><td>02-Jan-2025</td><td>1,000.50</td><td>900.25</td><td>100.25</td></tr>
    <tr><td>FII/FPI *</td><td>02-Jan-2025</td><td>2,000.00</td><td>2,100.00</td><td>-100.00</td></tr>
  </tbody>
</table>`

type stubFetcher struct {
	html string
	err  error
}

func (s *stubFetcher) FetchTable(context.Context) (string, error) {
	return s.html, s.err
}

type recordingNotifier struct {
	calls   int
	records []domain.FlowRecord
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, records []domain.FlowRecord) error {
	n.calls++
	n.records = records
	return n.err
}

func TestRun_FirstInsertionNotifies(t *testing.T) {
	store := memory.NewFlowStore()
	notifier := &recordingNotifier{}
	runner := NewRunner(&stubFetcher{html: goodTable}, store, notifier, discard)

	res, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.RowsParsed)
	assert.Zero(t, res.RowsSkipped)
	assert.Equal(t, 1, res.Records)
	require.Len(t, res.NewDates, 1)
	assert.True(t, res.Notified)

	require.Equal(t, 1, notifier.calls)
	require.Len(t, notifier.records, 1)
	assert.Equal(t, "2025-01-02", notifier.records[0].Key())
}

func TestRun_SecondRunIsTouchOnly(t *testing.T) {
	store := memory.NewFlowStore()
	notifier := &recordingNotifier{}
	runner := NewRunner(&stubFetcher{html: goodTable}, store, notifier, discard)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	res, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.NewDates)
	assert.Equal(t, 1, res.Touched)
	assert.False(t, res.Notified)
	assert.Equal(t, 1, notifier.calls, "notifier must not fire when nothing is new")
}

func TestRun_FetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("browser exploded")
	runner := NewRunner(&stubFetcher{err: fetchErr}, memory.NewFlowStore(), &recordingNotifier{}, discard)

	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, fetchErr)
}

func TestRun_AllRowsRejected(t *testing.T) {
	junk := `
<table>
  <thead><tr><th>Category</th><th>Date</th><th>Buy Value</th><th>Sell Value</th><th>Net Value</th></tr></thead>
  <tbody><tr><td>DII</td><td>not a date</td><td>x</td><td>y</td><td>z</td></tr></tbody>
</table>`
	notifier := &recordingNotifier{}
	runner := NewRunner(&stubFetcher{html: junk}, memory.NewFlowStore(), notifier, discard)

	res, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoUsableData)
	assert.Equal(t, 1, res.RowsParsed)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Zero(t, notifier.calls)
}

func TestRun_RowIsolation(t *testing.T) {
	mixed := `
<table>
  <thead><tr><th>Category</th><th>Date</th><th>Buy Value</th><th>Sell Value</th><th>Net Value</th></tr></thead>
  <tbody>
    <tr><td>DII</td><td>02-Jan-2025</td><td>1,000.50</td><td>900.25</td><td>100.25</td></tr>
    <tr><td>FII/FPI</td><td>02-Jan-2025</td><td>2,000.00</td><td>2,100.00</td><td>-100.00</td></tr>
    <tr><td>DII</td><td>03-Jan-2025</td><td>bogus</td><td>1.00</td><td>1.00</td></tr>
  </tbody>
</table>`
	runner := NewRunner(&stubFetcher{html: mixed}, memory.NewFlowStore(), &recordingNotifier{}, discard)

	res, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsParsed)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Equal(t, 1, res.Records)
}

func TestRun_MissingCredentialAfterPersist(t *testing.T) {
	store := memory.NewFlowStore()
	dispatcher := notify.NewDispatcher("", "", discard)
	runner := NewRunner(&stubFetcher{html: goodTable}, store, dispatcher, discard)

	_, err := runner.Run(context.Background())

	var cfgErr *notify.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	// The record is already durable despite the failed notification.
	stored, getErr := store.GetRecent(context.Background(), 1)
	require.NoError(t, getErr)
	require.Len(t, stored, 1)
	assert.Equal(t, "2025-01-02", stored[0].Key())
}

func TestRun_NotifierFailureIsTerminal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	runner := NewRunner(&stubFetcher{html: goodTable}, memory.NewFlowStore(), notifier, discard)

	res, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.False(t, res.Notified)
}
