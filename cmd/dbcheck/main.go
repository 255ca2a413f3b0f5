// Package main verifies database connectivity and schema, then prints the
// most recent stored records. Useful before wiring the watcher into cron.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"nse-flow-watch/internal/config"
	"nse-flow-watch/internal/storage/migrations"
	pgstore "nse-flow-watch/internal/storage/postgres"
)

func main() {
	limit := flag.Int("limit", 5, "Number of recent records to print")
	flag.Parse()

	logger := log.New(os.Stdout, "[dbcheck] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	logger.Println("connection ok")

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	logger.Println("schema ok")

	records, err := pgstore.NewFlowStore(pool).GetRecent(ctx, *limit)
	if err != nil {
		logger.Fatalf("query: %v", err)
	}
	if len(records) == 0 {
		logger.Println("no records stored yet")
		return
	}

	for _, r := range records {
		logger.Printf("%s dii(buy=%s sell=%s net=%s) fii(buy=%s sell=%s net=%s) inserted=%s updated=%s",
			r.Key(),
			r.DIIBuy.StringFixed(2), r.DIISell.StringFixed(2), r.DIINet.StringFixed(2),
			r.FIIBuy.StringFixed(2), r.FIISell.StringFixed(2), r.FIINet.StringFixed(2),
			r.InsertedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339))
	}
}
