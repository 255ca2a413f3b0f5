// Package render drives a headless browser to the source page and hands
// back the target table once it has finished drawing.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nse-flow-watch/internal/config"
)

// TableHandle is a live reference to the located table element inside a
// rendering session. All reads go back to the browser, so values can change
// between calls while the page is still drawing.
type TableHandle interface {
	// Visible reports whether the table element is visible in the viewport.
	Visible() (bool, error)

	// HeaderCellCount returns the number of <th> cells in the header row.
	HeaderCellCount() (int, error)

	// BodyRowCount returns the number of <tr> rows in the table body.
	BodyRowCount() (int, error)

	// FirstRowCellCount returns the number of <td> cells in the first body row.
	FirstRowCellCount() (int, error)

	// Nudge performs one benign UI interaction (scroll, keypress) to
	// provoke lazy client-side rendering.
	Nudge() error

	// OuterHTML captures the table subtree as HTML.
	OuterHTML() (string, error)
}

// Engine is one concrete rendering engine. The fallback loop iterates an
// ordered list of these instead of branching on engine identity.
type Engine interface {
	Name() string

	// Launch starts the engine. Release must be called afterwards even if
	// Launch returned an error.
	Launch() error

	Navigate(url string) error

	// LocateTable finds the heading by exact text, falling back to a
	// regex match, and returns the first table following it in document
	// order. Returns *LocateError when either step finds nothing.
	LocateTable(heading string) (TableHandle, error)

	// Release tears the session down. Safe to call more than once.
	Release()
}

// Client runs the fetch against an ordered engine list with fallback.
type Client struct {
	url     string
	heading string
	engines []Engine
	waiter  *Waiter
	logger  *log.Logger
}

// NewClient builds a Client with the default engine order: Firefox first
// (the source site is less hostile to it), Chromium as fallback.
func NewClient(cfg config.Config, logger *log.Logger) *Client {
	return &Client{
		url:     cfg.SourceURL,
		heading: cfg.TableHeading,
		engines: []Engine{
			newPlaywrightEngine(engineFirefox, cfg, logger),
			newPlaywrightEngine(engineChromium, cfg, logger),
		},
		waiter: NewWaiter(cfg, logger),
		logger: logger,
	}
}

// NewClientWithEngines builds a Client over an explicit engine list.
func NewClientWithEngines(cfg config.Config, logger *log.Logger, engines ...Engine) *Client {
	return &Client{
		url:     cfg.SourceURL,
		heading: cfg.TableHeading,
		engines: engines,
		waiter:  NewWaiter(cfg, logger),
		logger:  logger,
	}
}

// FetchTable navigates to the source page, waits for the target table to
// stabilize, and returns its HTML. Launch and navigation failures move on
// to the next engine; a LocateError or RenderTimeoutError from an engine
// that reached the page is final, since another engine would only re-render
// the same document.
func (c *Client) FetchTable(ctx context.Context) (string, error) {
	var lastErr error
	for _, eng := range c.engines {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		html, err := c.fetchWith(ctx, eng)
		if err == nil {
			return html, nil
		}

		var locErr *LocateError
		var timeoutErr *RenderTimeoutError
		if errors.As(err, &locErr) || errors.As(err, &timeoutErr) {
			return "", err
		}

		c.logger.Printf("engine %s failed, trying next: %v", eng.Name(), err)
		lastErr = err
	}
	return "", &LocateError{Reason: ReasonAllEnginesFailed, Cause: lastErr}
}

func (c *Client) fetchWith(ctx context.Context, eng Engine) (string, error) {
	if err := eng.Launch(); err != nil {
		eng.Release()
		return "", fmt.Errorf("launch %s: %w", eng.Name(), err)
	}
	defer eng.Release()

	if err := eng.Navigate(c.url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", eng.Name(), err)
	}

	table, err := eng.LocateTable(c.heading)
	if err != nil {
		return "", err
	}

	if err := c.waiter.Wait(ctx, table); err != nil {
		return "", err
	}

	html, err := table.OuterHTML()
	if err != nil {
		return "", fmt.Errorf("capture table html: %w", err)
	}
	return html, nil
}
