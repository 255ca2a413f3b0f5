// Package main sends a canned message through the configured Telegram
// credentials so a misconfigured token or chat id is caught before the
// first real alert.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"nse-flow-watch/internal/domain"
	"nse-flow-watch/internal/notify"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(os.Stdout, "[notifytest] ", log.LstdFlags)

	sample := []domain.FlowRecord{{
		RunDate: domain.Date(time.Now()),
		DIIBuy:  decimal.RequireFromString("13448.61"),
		DIISell: decimal.RequireFromString("12920.13"),
		DIINet:  decimal.RequireFromString("528.48"),
		FIIBuy:  decimal.RequireFromString("16496.43"),
		FIISell: decimal.RequireFromString("17999.55"),
		FIINet:  decimal.RequireFromString("-1503.12"),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d := notify.NewDispatcher(os.Getenv("BOT_TOKEN"), os.Getenv("CHAT_ID"), logger)
	if err := d.Notify(ctx, sample); err != nil {
		logger.Fatalf("send failed: %v", err)
	}
	logger.Println("test message delivered")
}
