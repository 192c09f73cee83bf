package browser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/httpclient"
)

// ErrNotReady means the page loaded but the awaited element never appeared.
// Scraped pages render late often enough that this is treated as transient.
var ErrNotReady = fmt.Errorf("%w: page element not ready", domain.ErrSourceUnavailable)

// DefaultWaitTimeout bounds how long a render waits for its selector.
const DefaultWaitTimeout = 30 * time.Second

// Renderer loads a page and returns its DOM once waitSelector matches.
// An empty waitSelector means "ready once the document is parsed".
// Implementations hold no state across calls; every call owns its session.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string) (*goquery.Document, error)
}

// HTTPRenderer renders server-side HTML with a plain GET.
type HTTPRenderer struct {
	client *httpclient.HTTPClient
}

// NewHTTPRenderer creates a renderer that fetches pages with browser-like headers.
func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{client: httpclient.NewClient(httpclient.BrowserClient, timeout)}
}

// Render fetches url and checks that waitSelector is present.
func (r *HTTPRenderer) Render(ctx context.Context, url, waitSelector string) (*goquery.Document, error) {
	body, _, err := r.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return parseReady(body, url, waitSelector)
}

func parseReady(body []byte, url, waitSelector string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrParseFailure, url, err)
	}

	if waitSelector != "" && doc.Find(waitSelector).Length() == 0 {
		return nil, fmt.Errorf("render %s: %q: %w", url, waitSelector, ErrNotReady)
	}

	return doc, nil
}
