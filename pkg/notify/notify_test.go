package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

type captured struct {
	title       string
	tags        string
	priority    string
	contentType string
	auth        string
	body        string
	calls       int
}

func newCaptureServer(t *testing.T, status int, c *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		c.contentType = r.Header.Get("Content-Type")
		c.auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		c.body = string(body)
		w.WriteHeader(status)
	}))
}

func sampleEpisode() domain.Episode {
	return domain.Episode{
		PodcastID: "sub-club",
		ShowName:  "Sub Club",
		Title:     "Pricing experiments",
		Published: time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
		URL:       "https://example.com/ep",
		Guests: []domain.Guest{
			{Name: "Jane Doe", LinkedInURL: "https://www.linkedin.com/in/jane-doe"},
			{Name: "John Roe", Description: "growth lead at a subscription app company in Berlin"},
		},
	}
}

func TestWebhook_Deliver(t *testing.T) {
	var c captured
	server := newCaptureServer(t, http.StatusOK, &c)
	defer server.Close()

	w, err := NewWebhook(WebhookConfig{URL: server.URL, Token: "secret"}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}
	if err := w.Deliver(context.Background(), sampleEpisode(), "- point one"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if c.title != "New episode: Sub Club" {
		t.Errorf("Title = %q", c.title)
	}
	if c.tags != "podcast,sub-club" {
		t.Errorf("Tags = %q", c.tags)
	}
	if c.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", c.auth)
	}
	if !strings.HasPrefix(c.contentType, "text/markdown") {
		t.Errorf("Content-Type = %q", c.contentType)
	}
	for _, want := range []string{
		"## New episode: Pricing experiments",
		"March 4, 2025",
		"[Jane Doe](https://www.linkedin.com/in/jane-doe)",
		"John Roe (growth lead at a subscription app company in Berli)",
		"- point one",
		"[Listen to episode](https://example.com/ep)",
	} {
		if !strings.Contains(c.body, want) {
			t.Errorf("body missing %q:\n%s", want, c.body)
		}
	}
}

func TestWebhook_DeliverHTML(t *testing.T) {
	var c captured
	server := newCaptureServer(t, http.StatusOK, &c)
	defer server.Close()

	w, _ := NewWebhook(WebhookConfig{URL: server.URL, HTML: true}, nil)
	if err := w.Deliver(context.Background(), sampleEpisode(), "- point one"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !strings.HasPrefix(c.contentType, "text/html") {
		t.Errorf("Content-Type = %q", c.contentType)
	}
	if !strings.Contains(c.body, "<h2>New episode: Pricing experiments</h2>") {
		t.Errorf("expected rendered heading:\n%s", c.body)
	}
	if !strings.Contains(c.body, "<li>point one</li>") {
		t.Errorf("expected rendered list:\n%s", c.body)
	}
}

func TestWebhook_StatusClassification(t *testing.T) {
	// Test Case 1: server error is retryable
	var c captured
	server := newCaptureServer(t, http.StatusBadGateway, &c)
	w, _ := NewWebhook(WebhookConfig{URL: server.URL}, nil)
	err := w.Deliver(context.Background(), sampleEpisode(), "s")
	server.Close()
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("Test Case 1: error = %v, want ErrSourceUnavailable", err)
	}

	// Test Case 2: client error is not
	server = newCaptureServer(t, http.StatusForbidden, &c)
	w, _ = NewWebhook(WebhookConfig{URL: server.URL}, nil)
	err = w.Deliver(context.Background(), sampleEpisode(), "s")
	server.Close()
	if err == nil || errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("Test Case 2: error = %v", err)
	}
}

func TestWebhook_ReportFailures(t *testing.T) {
	var c captured
	server := newCaptureServer(t, http.StatusOK, &c)
	defer server.Close()

	w, _ := NewWebhook(WebhookConfig{URL: server.URL}, nil)
	w.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	// Test Case 1: nothing to report sends nothing
	if err := w.ReportFailures(context.Background(), nil); err != nil {
		t.Fatalf("Test Case 1: error = %v", err)
	}
	if c.calls != 0 {
		t.Errorf("Test Case 1: calls = %d, want 0", c.calls)
	}

	// Test Case 2: one digest for all failures
	failures := []Failure{
		{PodcastID: "20vc", Stage: StageDetect, Err: errors.New("feed timeout")},
		{PodcastID: "sub-club", Stage: StageDeliver, Err: errors.New("webhook 500")},
	}
	if err := w.ReportFailures(context.Background(), failures); err != nil {
		t.Fatalf("Test Case 2: error = %v", err)
	}
	if c.calls != 1 {
		t.Errorf("Test Case 2: calls = %d, want 1", c.calls)
	}
	if c.priority != "high" {
		t.Errorf("Test Case 2: Priority = %q", c.priority)
	}
	for _, want := range []string{"2 podcast(s) failed", "- 20vc (detect): feed timeout", "- sub-club (deliver): webhook 500", "2025-01-02 03:04:05 UTC"} {
		if !strings.Contains(c.body, want) {
			t.Errorf("Test Case 2: body missing %q:\n%s", want, c.body)
		}
	}
}

func TestNewWebhook_RequiresURL(t *testing.T) {
	if _, err := NewWebhook(WebhookConfig{URL: "  "}, nil); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestFormatEpisode_Defaults(t *testing.T) {
	got := FormatEpisode(domain.Episode{Title: "T"}, "Transcript not found")
	for _, want := range []string{"**Show:** -", "**Published:** Unknown", "**Guest(s):** Not specified", "Transcript not found"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Listen to episode") {
		t.Error("link rendered without a URL")
	}
}
