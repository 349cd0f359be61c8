package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	appLog "rostersync/internal/log"
)

// BrowserOptions configures a headless-browser portal session.
type BrowserOptions struct {
	LoginURL    string
	Credentials Credentials

	// SettleDelay is the pause after each navigation click; if zero,
	// DefaultSettleDelay is used.
	SettleDelay time.Duration

	// Timeout bounds each individual login/navigation action. If zero,
	// a 30s default applies.
	Timeout time.Duration
}

// BrowserSession drives the portal in headless Chromium via chromedp.
type BrowserSession struct {
	opts BrowserOptions

	browserCtx context.Context
	cancels    []context.CancelFunc
}

var _ Session = (*BrowserSession)(nil)

// NewBrowserSession launches a headless Chromium instance. Close must
// be called to tear the browser down.
func NewBrowserSession(parentCtx context.Context, opts BrowserOptions) (*BrowserSession, error) {
	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.Credentials.Username == "" || opts.Credentials.Password == "" {
		return nil, fmt.Errorf("portal: browser session requires credentials")
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &BrowserSession{
		opts:       opts,
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{browserCancel, allocCancel},
	}, nil
}

// Login opens the login page, submits the personnel-id form and waits
// for the roster calendar to appear, returning the rendered page.
func (s *BrowserSession) Login(ctx context.Context) (string, error) {
	appLog.Info("portal login start", "driver", "browser", "url", s.opts.LoginURL)

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(s.opts.LoginURL),
		chromedp.WaitVisible(nameSelector(fieldPersonnelID), chromedp.ByQuery),
		chromedp.SendKeys(nameSelector(fieldPersonnelID), s.opts.Credentials.Username, chromedp.ByQuery),
		chromedp.SendKeys(nameSelector(fieldPassword), s.opts.Credentials.Password, chromedp.ByQuery),
		chromedp.Click(nameSelector(fieldLoginButton), chromedp.ByQuery),
		// The next-month link only renders once the roster calendar is up.
		chromedp.WaitVisible("#"+idNextMonth, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	}

	if err := s.run(ctx, tasks); err != nil {
		return "", fmt.Errorf("portal: browser login failed: %w", err)
	}

	appLog.Info("portal login ok", "driver", "browser")
	return html, nil
}

// Navigate clicks the next/previous month link, waits out the settle
// delay and returns the re-rendered page.
func (s *BrowserSession) Navigate(ctx context.Context, step Step) (string, error) {
	id := idNextMonth
	if step == StepPrev {
		id = idPrevMonth
	}

	var html string
	tasks := chromedp.Tasks{
		chromedp.Click("#"+id, chromedp.ByQuery),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.OuterHTML("html", &html),
	}

	if err := s.run(ctx, tasks); err != nil {
		return "", fmt.Errorf("portal: %s-month navigation failed: %w", step, err)
	}
	return html, nil
}

func (s *BrowserSession) run(ctx context.Context, tasks chromedp.Tasks) error {
	// The browser context owns the Chromium instance; the caller's ctx
	// and the per-action timeout both bound the work.
	runCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, tasks) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Close shuts the browser down.
func (s *BrowserSession) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

func nameSelector(name string) string {
	return fmt.Sprintf(`[name=%q]`, name)
}
