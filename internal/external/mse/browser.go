package mse

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/wonny/msesync/pkg/config"
)

// browserGetter renders pages in headless Chrome.
// Every call owns its allocator and browser; both are torn down before returning.
type browserGetter struct {
	opts       []chromedp.ExecAllocatorOption
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

func newBrowserGetter(cfg config.MSEConfig) *browserGetter {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...,
	)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &browserGetter{
		opts:       opts,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

func (b *browserGetter) getPage(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	delay := b.retryDelay

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		html, err := b.render(ctx, pageURL)
		if err == nil {
			return []byte(html), nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("browser fetch failed after %d attempts: %w", b.maxRetries+1, lastErr)
}

// render runs one acquire-use-release browser session
func (b *browserGetter) render(ctx context.Context, pageURL string) (string, error) {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, b.opts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	pageCtx, cancel := context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}

	return html, nil
}
