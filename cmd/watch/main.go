// Package main runs the FII/DII table watcher: scrape the daily table,
// upsert it, and notify on first insertion. One invocation is one run;
// --loop keeps it resident for container deployments.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nse-flow-watch/internal/config"
	"nse-flow-watch/internal/notify"
	"nse-flow-watch/internal/observability"
	"nse-flow-watch/internal/pipeline"
	"nse-flow-watch/internal/render"
	"nse-flow-watch/internal/storage/migrations"
	pgstore "nse-flow-watch/internal/storage/postgres"
)

// Exit codes by failure class, so the scheduler can tell stages apart
// without parsing logs.
const (
	exitOK            = 0
	exitConfig        = 1
	exitLocate        = 2
	exitRenderTimeout = 3
	exitNoUsableData  = 4
	exitPersistence   = 5
	exitNotification  = 6
)

func main() {
	loop := flag.Duration("loop", 0, "Re-run interval; 0 runs once and exits")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (loop mode only, empty disables)")
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Printf("config error: %v", err)
		os.Exit(exitConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling run...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("database error: %v", err)
		os.Exit(exitPersistence)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Printf("migration error: %v", err)
		os.Exit(exitPersistence)
	}

	runner := pipeline.NewRunner(
		render.NewClient(cfg, log.New(os.Stdout, "[render] ", log.LstdFlags)),
		pgstore.NewFlowStore(pool),
		notify.NewDispatcher(cfg.BotToken, cfg.ChatID, log.New(os.Stdout, "[notify] ", log.LstdFlags)),
		log.New(os.Stdout, "[pipeline] ", log.LstdFlags),
	)

	if *loop <= 0 {
		os.Exit(runOnce(ctx, runner, logger))
	}

	runner = runner.WithMetrics(observability.NewMetrics(""))
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	// Loop mode never exits on a failed run; the next tick tries again.
	ticker := time.NewTicker(*loop)
	defer ticker.Stop()

	runOnce(ctx, runner, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Println("shutdown complete")
			return
		case <-ticker.C:
			runOnce(ctx, runner, logger)
		}
	}
}

func runOnce(ctx context.Context, runner *pipeline.Runner, logger *log.Logger) int {
	start := time.Now()
	res, err := runner.Run(ctx)
	if err != nil {
		logger.Printf("run failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return exitCode(err)
	}

	logger.Printf("run ok in %s: parsed=%d skipped=%d records=%d new=%d touched=%d notified=%t",
		time.Since(start).Round(time.Millisecond),
		res.RowsParsed, res.RowsSkipped, res.Records, len(res.NewDates), res.Touched, res.Notified)
	return exitOK
}

func exitCode(err error) int {
	var locErr *render.LocateError
	var timeoutErr *render.RenderTimeoutError
	var cfgErr *notify.ConfigError
	var delErr *notify.DeliveryError

	switch {
	case errors.As(err, &locErr):
		return exitLocate
	case errors.As(err, &timeoutErr):
		return exitRenderTimeout
	case errors.Is(err, pipeline.ErrNoUsableData):
		return exitNoUsableData
	case errors.As(err, &cfgErr), errors.As(err, &delErr):
		return exitNotification
	default:
		return exitPersistence
	}
}
