package render

import (
	"context"
	"log"
	"time"

	"nse-flow-watch/internal/config"
)

const visiblePollInterval = 250 * time.Millisecond

// Waiter blocks until a located table satisfies all three stability
// conditions: header row present, at least one body row present, and
// header/first-row cell-count parity. Fixed sleeps are unreliable on a
// client-rendered page, so readiness is condition-based with a bounded
// nudge budget as the escape hatch.
type Waiter struct {
	visibleTimeout time.Duration
	readyTimeout   time.Duration
	nudgeBudget    int
	nudgeInterval  time.Duration
	logger         *log.Logger
}

// NewWaiter builds a Waiter from the run configuration.
func NewWaiter(cfg config.Config, logger *log.Logger) *Waiter {
	return &Waiter{
		visibleTimeout: cfg.TableVisibleTimeout,
		readyTimeout:   cfg.HeaderReadyTimeout,
		nudgeBudget:    cfg.NudgeCount,
		nudgeInterval:  cfg.NudgeInterval,
		logger:         logger,
	}
}

// Wait returns nil as soon as all three conditions hold. Each nudge is
// followed by a settle delay and a re-check. Exhausting the nudge budget or
// the ready timeout yields a *RenderTimeoutError with the last observed
// counts.
func (w *Waiter) Wait(ctx context.Context, t TableHandle) error {
	if err := w.waitVisible(ctx, t); err != nil {
		return err
	}

	deadline := time.Now().Add(w.readyTimeout)
	var last stabilityState

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = checkStability(t)
		if last.ready() {
			return nil
		}
		if attempt >= w.nudgeBudget || time.Now().After(deadline) {
			break
		}

		w.logger.Printf("table not stable (header=%d rows=%d firstRow=%d), nudge %d/%d",
			last.headerCells, last.bodyRows, last.firstRowCells, attempt+1, w.nudgeBudget)
		if err := t.Nudge(); err != nil {
			w.logger.Printf("nudge failed: %v", err)
		}
		if err := sleepCtx(ctx, w.nudgeInterval); err != nil {
			return err
		}
	}

	return &RenderTimeoutError{
		HeaderCells:   last.headerCells,
		BodyRows:      last.bodyRows,
		FirstRowCells: last.firstRowCells,
	}
}

func (w *Waiter) waitVisible(ctx context.Context, t TableHandle) error {
	deadline := time.Now().Add(w.visibleTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		visible, err := t.Visible()
		if err == nil && visible {
			return nil
		}
		if time.Now().After(deadline) {
			return &RenderTimeoutError{}
		}
		if err := sleepCtx(ctx, visiblePollInterval); err != nil {
			return err
		}
	}
}

type stabilityState struct {
	headerCells   int
	bodyRows      int
	firstRowCells int
}

func (s stabilityState) ready() bool {
	return s.headerCells > 0 && s.bodyRows > 0 && s.headerCells == s.firstRowCells
}

// checkStability reads the three counts, treating read errors as zero: a
// query against a half-drawn DOM is indistinguishable from "not yet".
func checkStability(t TableHandle) stabilityState {
	var s stabilityState
	if n, err := t.HeaderCellCount(); err == nil {
		s.headerCells = n
	}
	if n, err := t.BodyRowCount(); err == nil {
		s.bodyRows = n
	}
	if n, err := t.FirstRowCellCount(); err == nil {
		s.firstRowCells = n
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
