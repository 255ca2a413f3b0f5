package render

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"nse-flow-watch/internal/config"
)

type engineKind string

const (
	engineFirefox  engineKind = "firefox"
	engineChromium engineKind = "chromium"
)

// playwrightEngine implements Engine on top of playwright-go. One instance
// owns one browser session; a new run always starts from a fresh session.
type playwrightEngine struct {
	kind       engineKind
	navTimeout time.Duration
	logger     *log.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func newPlaywrightEngine(kind engineKind, cfg config.Config, logger *log.Logger) *playwrightEngine {
	return &playwrightEngine{
		kind:       kind,
		navTimeout: cfg.NavigationTimeout,
		logger:     logger,
	}
}

func (e *playwrightEngine) Name() string { return string(e.kind) }

func (e *playwrightEngine) Launch() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	e.pw = pw

	bt := pw.Firefox
	if e.kind == engineChromium {
		bt = pw.Chromium
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	e.browser = browser

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Locale: playwright.String("en-US"),
	})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(float64(e.navTimeout.Milliseconds()))
	e.page = page
	return nil
}

func (e *playwrightEngine) Navigate(url string) error {
	_, err := e.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(e.navTimeout.Milliseconds())),
	})
	return err
}

func (e *playwrightEngine) LocateTable(heading string) (TableHandle, error) {
	found, err := e.findHeading(heading)
	if err != nil {
		return nil, err
	}

	// First table following the heading in document order. The heading
	// anchors the search; there is never a page-wide table scan.
	table := found.Locator("xpath=following::table[1]")
	n, err := table.Count()
	if err != nil {
		return nil, fmt.Errorf("query table after heading: %w", err)
	}
	if n == 0 {
		return nil, &LocateError{Reason: ReasonTableNotFound, Engine: e.Name()}
	}

	return &pwTable{page: e.page, table: table.First()}, nil
}

// findHeading matches the heading text exactly first, then falls back to a
// case-insensitive, whitespace-tolerant regular expression.
func (e *playwrightEngine) findHeading(heading string) (playwright.Locator, error) {
	exact := e.page.GetByText(heading, playwright.PageGetByTextOptions{
		Exact: playwright.Bool(true),
	})
	n, err := exact.Count()
	if err != nil {
		return nil, fmt.Errorf("query heading: %w", err)
	}
	if n > 0 {
		return exact.First(), nil
	}

	loose := e.page.GetByText(headingPattern(heading))
	n, err = loose.Count()
	if err != nil {
		return nil, fmt.Errorf("query heading (regex): %w", err)
	}
	if n == 0 {
		return nil, &LocateError{Reason: ReasonHeadingNotFound, Engine: e.Name()}
	}
	e.logger.Printf("heading matched via regex fallback")
	return loose.First(), nil
}

// headingPattern turns the heading into a regex that tolerates case and
// whitespace differences introduced by the renderer.
func headingPattern(heading string) *regexp.Regexp {
	fields := strings.Fields(heading)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, `\s+`))
}

func (e *playwrightEngine) Release() {
	if e.page != nil {
		if err := e.page.Close(); err != nil {
			e.logger.Printf("close page: %v", err)
		}
		e.page = nil
	}
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			e.logger.Printf("close browser: %v", err)
		}
		e.browser = nil
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil {
			e.logger.Printf("stop playwright: %v", err)
		}
		e.pw = nil
	}
}

// pwTable implements TableHandle over a live Playwright locator.
type pwTable struct {
	page  playwright.Page
	table playwright.Locator
}

func (t *pwTable) Visible() (bool, error) {
	return t.table.IsVisible()
}

func (t *pwTable) HeaderCellCount() (int, error) {
	return t.table.Locator("thead th").Count()
}

func (t *pwTable) BodyRowCount() (int, error) {
	return t.table.Locator("tbody tr").Count()
}

func (t *pwTable) FirstRowCellCount() (int, error) {
	rows, err := t.table.Locator("tbody tr").Count()
	if err != nil || rows == 0 {
		return 0, err
	}
	return t.table.Locator("tbody tr").First().Locator("td").Count()
}

// Nudge scrolls and sends an End keypress; both are benign interactions
// that trigger lazy rendering without navigating away.
func (t *pwTable) Nudge() error {
	if err := t.page.Mouse().Wheel(0, 600); err != nil {
		return err
	}
	return t.page.Keyboard().Press("End")
}

func (t *pwTable) OuterHTML() (string, error) {
	v, err := t.table.Evaluate("el => el.outerHTML", nil)
	if err != nil {
		return "", err
	}
	html, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected evaluate result %T", v)
	}
	return html, nil
}
