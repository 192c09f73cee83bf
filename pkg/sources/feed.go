package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/guests"
	"podcast-digest/pkg/httpclient"
	"podcast-digest/pkg/logging"
)

const untitledEpisode = "Untitled Episode"

// FeedSource reads the latest episode from an RSS/Atom feed.
type FeedSource struct {
	client   *httpclient.HTTPClient
	fallback *httpclient.HTTPClient
	logger   *slog.Logger
}

// NewFeedSource creates a feed source. Feeds that answer 403 to a feed-reader
// User-Agent are retried once with curl-like headers.
func NewFeedSource(timeout time.Duration, logger *slog.Logger) *FeedSource {
	return &FeedSource{
		client:   httpclient.NewClient(httpclient.FeedClient, timeout),
		fallback: httpclient.NewClient(httpclient.CloudflareClient, timeout),
		logger:   logging.NewComponentLogger(logger, "feed"),
	}
}

// DetectLatest fetches and parses the feed; the first item is the latest episode.
func (s *FeedSource) DetectLatest(ctx context.Context, cfg domain.PodcastConfig) (Detection, error) {
	body, err := s.fetch(ctx, cfg.FeedURL)
	if err != nil {
		return Detection{}, err
	}

	// gofeed parsers keep per-parse state; one per call keeps workers independent.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return Detection{}, fmt.Errorf("%w: parse feed %s: %v", domain.ErrParseFailure, cfg.FeedURL, err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return Detection{}, fmt.Errorf("%w: feed %s contains no items", domain.ErrParseFailure, cfg.FeedURL)
	}

	ep, err := episodeFromItem(cfg, feed.Items[0])
	if err != nil {
		return Detection{}, err
	}

	s.logger.Debug("latest feed item", "podcast_id", cfg.ID, "title", ep.Title, "identity", ep.Identity.Value)
	return Detection{Episode: ep}, nil
}

func (s *FeedSource) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	body, _, err := s.client.Fetch(ctx, feedURL)
	if err == nil {
		return body, nil
	}
	if !httpclient.IsStatus(err, http.StatusForbidden) {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	s.logger.Info("feed refused feed-reader headers, retrying with fallback profile", "url", feedURL)
	body, _, err = s.fallback.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed with fallback profile: %w", err)
	}
	return body, nil
}

func episodeFromItem(cfg domain.PodcastConfig, item *gofeed.Item) (domain.Episode, error) {
	raw := item.GUID
	if strings.TrimSpace(raw) == "" {
		raw = item.Link
	}
	identity := domain.NormalizeIdentity(raw, domain.FeedIdentity)
	if identity.IsZero() {
		return domain.Episode{}, fmt.Errorf("%w: latest item in %s has neither guid nor link", domain.ErrParseFailure, cfg.FeedURL)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = untitledEpisode
	}

	description := item.Content
	if strings.TrimSpace(description) == "" {
		description = item.Description
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return domain.Episode{
		PodcastID:   cfg.ID,
		ShowName:    cfg.DisplayName(),
		Title:       title,
		Published:   published,
		Description: description,
		URL:         item.Link,
		AudioURL:    audioURL(item.Enclosures),
		Identity:    identity,
		Guests:      guests.Extract(title, description),
	}, nil
}

// audioURL picks the first audio enclosure, or the first untyped one.
func audioURL(enclosures []*gofeed.Enclosure) string {
	var untyped string
	for _, enc := range enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "audio/") {
			return enc.URL
		}
		if enc.Type == "" && untyped == "" {
			untyped = enc.URL
		}
	}
	return untyped
}
