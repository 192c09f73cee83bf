package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"podcast-digest/pkg/domain"
)

func TestHTTPRenderer_Render(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a class="episode" href="/ep/2">Ep 2</a></body></html>`))
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(0)

	doc, err := renderer.Render(context.Background(), server.URL, "a.episode")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if got := doc.Find("a.episode").Text(); got != "Ep 2" {
		t.Errorf("unexpected link text %q", got)
	}
}

func TestHTTPRenderer_SelectorMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="loading"></div></body></html>`))
	}))
	defer server.Close()

	_, err := NewHTTPRenderer(0).Render(context.Background(), server.URL, "a.episode")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Error("ErrNotReady must be retryable")
	}
}
