package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"podcast-digest/pkg/browser"
	"podcast-digest/pkg/content"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/guests"
	"podcast-digest/pkg/httpclient"
	"podcast-digest/pkg/logging"
)

// Selector defaults, tuned for podcast directory show pages.
var (
	DefaultEpisodeLinkSelector = `a[href*="?i="], a[href*="/episode/"]`
	DefaultTitleSelectors      = []string{`h1[class*="headings"]`, `h1[class*="title"]`, `[data-testid="episode-title"]`, "h1"}
	DefaultDescriptionSelector = `[data-testid="description"], .product-hero-desc, section[class*="description"]`
	DefaultTranscriptSelectors = []string{
		`[data-testid="episode-description"]`,
		".episode-description",
		`section[class*="description"]`,
		`[class*="notes"]`,
		`[class*="episode-details"]`,
	}
	DefaultSectionHeading = "Episode Highlights"
	DefaultStopMarkers    = []string{"See All", "More Episodes", "You Might Also Like", "Customer Reviews", "Top Podcasts"}
)

const (
	minSectionChars   = 200
	minSelectorChars  = 500
	minParagraphChars = 100
	minCombinedChars  = 500
)

var relativeAge = regexp.MustCompile(`(?i)^\d+[DHM]\s+AGO\s+`)

// ScrapeSource reads episodes and transcripts from a rendered show page.
type ScrapeSource struct {
	renderer browser.Renderer
	client   *httpclient.HTTPClient
	logger   *slog.Logger
}

// NewScrapeSource creates a scrape source. The renderer owns page sessions;
// client downloads linked transcript documents.
func NewScrapeSource(renderer browser.Renderer, timeout time.Duration, logger *slog.Logger) *ScrapeSource {
	return &ScrapeSource{
		renderer: renderer,
		client:   httpclient.NewClient(httpclient.BrowserClient, timeout),
		logger:   logging.NewComponentLogger(logger, "scrape"),
	}
}

// DetectLatest renders the show page, follows the first episode link and reads
// the episode page. The episode URL is the identity.
func (s *ScrapeSource) DetectLatest(ctx context.Context, cfg domain.PodcastConfig) (Detection, error) {
	linkSel := orDefault(cfg.Scrape.EpisodeLinkSelector, DefaultEpisodeLinkSelector)

	show, err := s.renderer.Render(ctx, cfg.ShowPageURL, linkSel)
	if err != nil {
		return Detection{}, fmt.Errorf("render show page: %w", err)
	}

	first := show.Find(linkSel).First()
	href := strings.TrimSpace(first.AttrOr("href", ""))
	if href == "" {
		return Detection{}, fmt.Errorf("%w: no episode links on %s", domain.ErrParseFailure, cfg.ShowPageURL)
	}
	episodeURL, err := content.ResolveAgainst(cfg.ShowPageURL, href)
	if err != nil {
		return Detection{}, fmt.Errorf("%w: episode link %q: %v", domain.ErrParseFailure, href, err)
	}

	page, err := s.renderer.Render(ctx, episodeURL, "body")
	if err != nil {
		return Detection{}, fmt.Errorf("render episode page: %w", err)
	}

	title := s.episodeTitle(cfg, page)
	if title == "" {
		title = content.CleanText(first.Text())
	}
	if title == "" {
		title = untitledEpisode
	}

	descSel := page.Find(DefaultDescriptionSelector).First()
	descHTML, _ := descSel.Html()

	ep := domain.Episode{
		PodcastID:   cfg.ID,
		ShowName:    cfg.DisplayName(),
		Title:       title,
		Published:   publishedDate(page),
		Description: content.CleanText(descSel.Text()),
		URL:         episodeURL,
		Identity:    domain.NormalizeIdentity(episodeURL, domain.FeedIdentity),
		Guests:      guests.Extract(title, descHTML),
	}

	s.logger.Debug("latest scraped episode", "podcast_id", cfg.ID, "title", ep.Title, "url", episodeURL)
	return Detection{Episode: ep}, nil
}

// AcquireTranscript locates the episode page and extracts its transcript.
// The show page itself is never used as a fallback: its text belongs to
// whichever episode is listed first.
func (s *ScrapeSource) AcquireTranscript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error) {
	episodeURL, err := s.locateEpisode(ctx, cfg, ep)
	if err != nil {
		return domain.TranscriptNotFound(), err
	}
	if episodeURL == "" {
		s.logger.Warn("episode page not found on show page", "podcast_id", cfg.ID, "title", ep.Title)
		return domain.TranscriptNotFound(), nil
	}

	page, err := s.renderer.Render(ctx, episodeURL, "body")
	if err != nil {
		return domain.TranscriptNotFound(), fmt.Errorf("render episode page: %w", err)
	}

	text, how, err := s.extract(ctx, cfg, page, episodeURL)
	if err != nil {
		return domain.TranscriptNotFound(), err
	}
	if text == "" {
		s.logger.Info("no transcript content on episode page", "podcast_id", cfg.ID, "url", episodeURL)
		return domain.TranscriptNotFound(), nil
	}

	s.logger.Info("scraped transcript", "podcast_id", cfg.ID, "method", how, "chars", len(text))
	return domain.TranscriptText(text), nil
}

// locateEpisode returns the episode page URL, or "" when no link matches.
func (s *ScrapeSource) locateEpisode(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (string, error) {
	if ep.URL != "" && sameHost(ep.URL, cfg.ShowPageURL) && ep.URL != cfg.ShowPageURL {
		return ep.URL, nil
	}

	linkSel := orDefault(cfg.Scrape.EpisodeLinkSelector, DefaultEpisodeLinkSelector)
	show, err := s.renderer.Render(ctx, cfg.ShowPageURL, linkSel)
	if err != nil {
		return "", fmt.Errorf("render show page: %w", err)
	}

	var match string
	show.Find(linkSel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !guests.TitlesMatch(ep.Title, a.Text()) {
			return true
		}
		resolved, err := content.ResolveAgainst(cfg.ShowPageURL, a.AttrOr("href", ""))
		if err != nil {
			return true
		}
		match = resolved
		return false
	})

	return match, nil
}

// extract tries, in order: the highlights section, configured content
// selectors, a linked transcript document, then long paragraphs in <main>.
func (s *ScrapeSource) extract(ctx context.Context, cfg domain.PodcastConfig, page *goquery.Document, pageURL string) (string, string, error) {
	heading := orDefault(cfg.Scrape.SectionHeading, DefaultSectionHeading)
	stops := cfg.Scrape.StopMarkers
	if len(stops) == 0 {
		stops = DefaultStopMarkers
	}
	if text, ok := content.ExtractSection(page.Find("body").Text(), heading, stops, minSectionChars); ok {
		return text, "section", nil
	}

	selectors := cfg.Scrape.TranscriptSelectors
	if len(selectors) == 0 {
		selectors = DefaultTranscriptSelectors
	}
	if text, ok := content.ExtractBySelectors(page, selectors, minSelectorChars); ok {
		return text, "selector", nil
	}

	if docURL, err := content.ResolveTranscriptURL(page, pageURL); err == nil {
		text, err := s.fetchDocument(ctx, docURL)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			return content.CleanText(text), "document", nil
		case errors.Is(err, domain.ErrSourceUnavailable):
			return "", "", err
		case err != nil:
			s.logger.Warn("transcript document unusable", "url", docURL, "error", err)
		}
	}

	if text, ok := content.ExtractLongParagraphs(page, minParagraphChars, minCombinedChars); ok {
		return text, "paragraphs", nil
	}

	return "", "", nil
}

func (s *ScrapeSource) fetchDocument(ctx context.Context, docURL string) (string, error) {
	body, contentType, err := s.client.Fetch(ctx, docURL)
	if err != nil {
		return "", fmt.Errorf("fetch transcript document: %w", err)
	}
	return content.DocumentText(body, docURL, contentType)
}

func (s *ScrapeSource) episodeTitle(cfg domain.PodcastConfig, page *goquery.Document) string {
	selectors := cfg.Scrape.TitleSelectors
	if len(selectors) == 0 {
		selectors = DefaultTitleSelectors
	}

	title, err := content.TitleFromDocument(page, selectors)
	if err != nil {
		html, herr := page.Html()
		if herr != nil {
			return ""
		}
		if title, err = content.ExtractTitle(html); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(relativeAge.ReplaceAllString(title, ""))
}

var pageDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

func publishedDate(page *goquery.Document) time.Time {
	var published time.Time
	page.Find("time[datetime], time, [datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := sel.AttrOr("datetime", "")
		if raw == "" {
			raw = sel.Text()
		}
		if t, ok := parseDate(raw); ok {
			published = t
			return false
		}
		return true
	})
	return published
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range pageDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
