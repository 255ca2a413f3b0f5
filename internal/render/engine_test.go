package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-flow-watch/internal/config"
)

// fakeEngine scripts one engine's behavior for the fallback loop.
type fakeEngine struct {
	name      string
	launchErr error
	navErr    error
	locateErr error
	table     TableHandle
	launched  int
	released  int
}

func (e *fakeEngine) Name() string { return e.name }

func (e *fakeEngine) Launch() error {
	e.launched++
	return e.launchErr
}

func (e *fakeEngine) Navigate(string) error { return e.navErr }

func (e *fakeEngine) LocateTable(string) (TableHandle, error) {
	if e.locateErr != nil {
		return nil, e.locateErr
	}
	return e.table, nil
}

func (e *fakeEngine) Release() { e.released++ }

func clientWith(t *testing.T, engines ...Engine) *Client {
	t.Helper()
	cfg := config.Config{
		SourceURL:           "https://example.test/reports",
		TableHeading:        "trading activity",
		TableVisibleTimeout: 200 * time.Millisecond,
		HeaderReadyTimeout:  time.Second,
		NudgeCount:          1,
		NudgeInterval:       time.Millisecond,
	}
	return NewClientWithEngines(cfg, discard, engines...)
}

func stableTable() *fakeTable {
	return &fakeTable{visible: true, headerCells: 5, bodyRows: 2, firstRow: 5, html: "<table></table>"}
}

func TestClient_PrimaryEngineSucceeds(t *testing.T) {
	primary := &fakeEngine{name: "primary", table: stableTable()}
	secondary := &fakeEngine{name: "secondary"}

	html, err := clientWith(t, primary, secondary).FetchTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<table></table>", html)
	assert.Zero(t, secondary.launched, "fallback is never speculative")
	assert.Equal(t, 1, primary.released, "session released on success")
}

func TestClient_FallsBackOnLaunchFailure(t *testing.T) {
	primary := &fakeEngine{name: "primary", launchErr: errors.New("no executable")}
	secondary := &fakeEngine{name: "secondary", table: stableTable()}

	html, err := clientWith(t, primary, secondary).FetchTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<table></table>", html)
	assert.Equal(t, 1, primary.released, "failed engine still released")
}

func TestClient_FallsBackOnNavigationFailure(t *testing.T) {
	primary := &fakeEngine{name: "primary", navErr: errors.New("net::ERR_HTTP2_PROTOCOL_ERROR")}
	secondary := &fakeEngine{name: "secondary", table: stableTable()}

	_, err := clientWith(t, primary, secondary).FetchTable(context.Background())
	require.NoError(t, err)
}

func TestClient_AllEnginesFailed(t *testing.T) {
	launchErr := errors.New("no executable")
	primary := &fakeEngine{name: "primary", launchErr: launchErr}
	secondary := &fakeEngine{name: "secondary", launchErr: launchErr}

	_, err := clientWith(t, primary, secondary).FetchTable(context.Background())

	var locErr *LocateError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, ReasonAllEnginesFailed, locErr.Reason)
	assert.ErrorIs(t, err, launchErr, "last observed failure is surfaced, not swallowed")
}

func TestClient_LocateErrorIsFinal(t *testing.T) {
	primary := &fakeEngine{
		name:      "primary",
		locateErr: &LocateError{Reason: ReasonHeadingNotFound, Engine: "primary"},
	}
	secondary := &fakeEngine{name: "secondary", table: stableTable()}

	_, err := clientWith(t, primary, secondary).FetchTable(context.Background())

	var locErr *LocateError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, ReasonHeadingNotFound, locErr.Reason)
	assert.Zero(t, secondary.launched, "re-rendering the same document cannot help")
}

func TestClient_RenderTimeoutPropagates(t *testing.T) {
	// Table never reaches parity.
	broken := &fakeTable{visible: true, headerCells: 5, bodyRows: 1, firstRow: 2}
	primary := &fakeEngine{name: "primary", table: broken}
	secondary := &fakeEngine{name: "secondary", table: stableTable()}

	_, err := clientWith(t, primary, secondary).FetchTable(context.Background())

	var timeoutErr *RenderTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Zero(t, secondary.launched)
}
