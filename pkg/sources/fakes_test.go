package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"podcast-digest/pkg/browser"
)

// fakeRenderer serves canned HTML per URL and behaves like a page whose
// awaited element never shows up when the selector does not match.
type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, url, waitSelector string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("render %s: %w", url, browser.ErrNotReady)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if waitSelector != "" && doc.Find(waitSelector).Length() == 0 {
		return nil, fmt.Errorf("render %s: %w", url, browser.ErrNotReady)
	}
	return doc, nil
}

func (f *fakeRenderer) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}
