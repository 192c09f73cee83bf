package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"podcast-digest/pkg/domain"
)

// ChromeRenderer drives a headless Chrome for pages that build their episode
// lists client-side. Each Render starts its own browser process and tears it
// down before returning, whatever the outcome.
type ChromeRenderer struct {
	// ExecPath overrides the Chrome binary; empty uses chromedp's lookup.
	ExecPath    string
	UserAgent   string
	WaitTimeout time.Duration
	Logger      *slog.Logger
}

// NewChromeRenderer returns a renderer with default timeouts.
func NewChromeRenderer(execPath string, logger *slog.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		ExecPath:    execPath,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WaitTimeout: DefaultWaitTimeout,
		Logger:      logger,
	}
}

func (r *ChromeRenderer) Render(ctx context.Context, url, waitSelector string) (*goquery.Document, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if r.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.UserAgent))
	}
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	timeout := r.WaitTimeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	if waitSelector == "" {
		waitSelector = "body"
	}

	start := time.Now()
	var html string
	// Navigate returns on the load event. Dynamic content is awaited by the
	// bounded WaitReady on waitSelector; there is no network-idle wait.
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("render %s: %q after %s: %w", url, waitSelector, timeout, ErrNotReady)
		default:
			return nil, fmt.Errorf("render %s: %w", url, errors.Join(domain.ErrSourceUnavailable, err))
		}
	}

	if r.Logger != nil {
		r.Logger.Debug("page rendered", "url", url, "selector", waitSelector, "elapsed", time.Since(start))
	}

	return parseReady([]byte(html), url, "")
}
