package domain

import "fmt"

// DetectionMethod selects how new episodes are detected for a podcast.
type DetectionMethod string

const (
	DetectFeed    DetectionMethod = "feed"
	DetectScrape  DetectionMethod = "scrape"
	DetectArchive DetectionMethod = "archive"
)

// TranscriptMethod selects how a transcript is obtained once an episode is new.
type TranscriptMethod string

const (
	TranscriptArchive    TranscriptMethod = "archive"
	TranscriptScrape     TranscriptMethod = "scrape"
	TranscriptTranscribe TranscriptMethod = "transcribe"
)

// ScrapeOptions overrides the selectors used when a podcast is scraped.
// Zero values fall back to the scraper defaults.
type ScrapeOptions struct {
	EpisodeLinkSelector string   `yaml:"episode_link_selector" toml:"episode_link_selector"`
	TitleSelectors      []string `yaml:"title_selectors" toml:"title_selectors"`
	TranscriptSelectors []string `yaml:"transcript_selectors" toml:"transcript_selectors"`
	SectionHeading      string   `yaml:"section_heading" toml:"section_heading"`
	StopMarkers         []string `yaml:"stop_markers" toml:"stop_markers"`
}

// PodcastConfig is the static description of one monitored podcast.
// It is read-only once loaded.
type PodcastConfig struct {
	ID               string           `yaml:"id" toml:"id"`
	Name             string           `yaml:"name" toml:"name"`
	Category         string           `yaml:"category" toml:"category"`
	Detection        DetectionMethod  `yaml:"detection" toml:"detection"`
	TranscriptMethod TranscriptMethod `yaml:"transcript_method" toml:"transcript_method"`
	FeedURL          string           `yaml:"feed_url" toml:"feed_url"`
	ShowPageURL      string           `yaml:"show_page_url" toml:"show_page_url"`
	ArchiveURL       string           `yaml:"archive_url" toml:"archive_url"`
	Website          string           `yaml:"website" toml:"website"`
	Scrape           ScrapeOptions    `yaml:"scrape" toml:"scrape"`
}

// Validate checks that the locator required by each configured method is present.
func (p PodcastConfig) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: podcast id is required", ErrInvalidConfig)
	}

	switch p.Detection {
	case DetectFeed:
		if p.FeedURL == "" {
			return fmt.Errorf("%w: podcast %q: feed detection requires feed_url", ErrInvalidConfig, p.ID)
		}
	case DetectScrape:
		if p.ShowPageURL == "" {
			return fmt.Errorf("%w: podcast %q: scrape detection requires show_page_url", ErrInvalidConfig, p.ID)
		}
	case DetectArchive:
		if p.ArchiveURL == "" {
			return fmt.Errorf("%w: podcast %q: archive detection requires archive_url", ErrInvalidConfig, p.ID)
		}
	default:
		return fmt.Errorf("%w: podcast %q: unknown detection method %q", ErrInvalidConfig, p.ID, p.Detection)
	}

	switch p.TranscriptMethod {
	case TranscriptArchive:
		if p.ArchiveURL == "" {
			return fmt.Errorf("%w: podcast %q: archive transcripts require archive_url", ErrInvalidConfig, p.ID)
		}
	case TranscriptScrape:
		if p.ShowPageURL == "" {
			return fmt.Errorf("%w: podcast %q: scraped transcripts require show_page_url", ErrInvalidConfig, p.ID)
		}
	case TranscriptTranscribe:
	default:
		return fmt.Errorf("%w: podcast %q: unknown transcript method %q", ErrInvalidConfig, p.ID, p.TranscriptMethod)
	}

	return nil
}

// DisplayName returns the configured name, or the id when no name is set.
func (p PodcastConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
