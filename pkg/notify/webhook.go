package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

const (
	userAgent = "podcast-digest/1.0"

	// DefaultTimeout bounds one webhook request.
	DefaultTimeout = 10 * time.Second
)

// WebhookConfig describes an ntfy-style endpoint: the body is the message and
// metadata travels in headers.
type WebhookConfig struct {
	URL     string
	Token   string
	HTML    bool
	Timeout time.Duration
}

// Webhook posts summaries and failure digests to an HTTP endpoint.
type Webhook struct {
	endpoint string
	token    string
	html     bool
	client   *http.Client
	now      func() time.Time
	logger   *slog.Logger
}

// NewWebhook returns a webhook notifier, or an error when no URL is set.
func NewWebhook(cfg WebhookConfig, logger *slog.Logger) (*Webhook, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: webhook url is empty", domain.ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webhook{
		endpoint: endpoint,
		token:    cfg.Token,
		html:     cfg.HTML,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "notify"),
	}, nil
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (w *Webhook) Deliver(ctx context.Context, ep domain.Episode, summary string) error {
	title := "New episode"
	if ep.ShowName != "" {
		title = "New episode: " + ep.ShowName
	}
	err := w.send(ctx, message{
		title: title,
		body:  FormatEpisode(ep, summary),
		tags:  []string{"podcast", ep.PodcastID},
	})
	if err != nil {
		return fmt.Errorf("deliver %s: %w", ep.PodcastID, err)
	}
	w.logger.Info("summary delivered", "podcast_id", ep.PodcastID, "episode", ep.Title)
	return nil
}

func (w *Webhook) ReportFailures(ctx context.Context, failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	return w.send(ctx, message{
		title:    "Podcast digest errors",
		body:     FormatFailures(failures, w.now()),
		tags:     []string{"podcast", "error"},
		priority: "high",
	})
}

func (w *Webhook) send(ctx context.Context, msg message) error {
	body := []byte(msg.body)
	contentType := "text/markdown; charset=utf-8"
	if w.html {
		var buf bytes.Buffer
		if err := goldmark.Convert(body, &buf); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		body = buf.Bytes()
		contentType = "text/html; charset=utf-8"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if !w.html {
		req.Header.Set("Markdown", "yes")
	}
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
