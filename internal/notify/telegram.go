// Package notify delivers new-data alerts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nse-flow-watch/internal/domain"
)

const defaultAPIBase = "https://api.telegram.org"

// ConfigError means a required delivery setting is absent. It fails the
// run loudly: a missing credential must be diagnosable, not a quiet no-op.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("notification config: %s not set", e.Missing)
}

// DeliveryError means the transport accepted the request but delivery
// failed (non-200 status or a Telegram-level refusal).
type DeliveryError struct {
	StatusCode  int
	Description string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification delivery failed: status=%d %s", e.StatusCode, e.Description)
}

// Dispatcher sends one formatted message per triggering run. It performs no
// internal retries; retry policy belongs to the invoking scheduler.
type Dispatcher struct {
	client  *resty.Client
	apiBase string
	token   string
	chatID  string
	logger  *log.Logger
}

// NewDispatcher builds a Dispatcher. Credentials are validated at send
// time, not here: runs with no new data never need them.
func NewDispatcher(token, chatID string, logger *log.Logger) *Dispatcher {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	return &Dispatcher{
		client:  client,
		apiBase: defaultAPIBase,
		token:   token,
		chatID:  chatID,
		logger:  logger,
	}
}

// WithAPIBase overrides the Telegram API base URL. Test use only.
func (d *Dispatcher) WithAPIBase(base string) *Dispatcher {
	d.apiBase = base
	return d
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify formats the records into one monospace text block and delivers
// it. Call only for runs that inserted new data.
func (d *Dispatcher) Notify(ctx context.Context, records []domain.FlowRecord) error {
	if d.token == "" {
		return &ConfigError{Missing: "BOT_TOKEN"}
	}
	if d.chatID == "" {
		return &ConfigError{Missing: "CHAT_ID"}
	}

	body := sendMessageRequest{
		ChatID:                d.chatID,
		Text:                  FormatRecords(records),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}

	var result sendMessageResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", d.apiBase, d.token))
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	if resp.StatusCode() != 200 || !result.OK {
		return &DeliveryError{StatusCode: resp.StatusCode(), Description: result.Description}
	}

	d.logger.Printf("notified chat %s about %d record(s)", d.chatID, len(records))
	return nil
}

// FormatRecords renders records as a fixed-width block wrapped in <pre> so
// chat clients show it in a monospace font.
func FormatRecords(records []domain.FlowRecord) string {
	if len(records) == 0 {
		return "<pre>No data</pre>"
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "FII/DII Equity Flows — %s\n", r.RunDate.Format(domain.DateLayout))
		fmt.Fprintf(&b, "%-8s %12s %12s %12s\n", "", "Buy", "Sell", "Net")
		fmt.Fprintf(&b, "%-8s %12s %12s %12s\n", "DII", r.DIIBuy.StringFixed(2), r.DIISell.StringFixed(2), r.DIINet.StringFixed(2))
		fmt.Fprintf(&b, "%-8s %12s %12s %12s\n", "FII/FPI", r.FIIBuy.StringFixed(2), r.FIISell.StringFixed(2), r.FIINet.StringFixed(2))
	}
	return "<pre>" + strings.TrimRight(b.String(), "\n") + "</pre>"
}
