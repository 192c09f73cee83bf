package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podcast-digest/pkg/domain"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if len(cfg.Podcasts) != 3 {
		t.Fatalf("default podcasts = %d, want 3", len(cfg.Podcasts))
	}

	lenny, ok := cfg.Podcast("lennys-podcast")
	if !ok || lenny.Detection != domain.DetectArchive || lenny.TranscriptMethod != domain.TranscriptArchive {
		t.Errorf("lennys-podcast = %+v", lenny)
	}
	sub, _ := cfg.Podcast("sub-club")
	if sub.Detection != domain.DetectFeed || sub.TranscriptMethod != domain.TranscriptScrape || sub.ShowPageURL == "" {
		t.Errorf("sub-club = %+v", sub)
	}
	vc, _ := cfg.Podcast("20vc")
	if vc.TranscriptMethod != domain.TranscriptTranscribe {
		t.Errorf("20vc = %+v", vc)
	}

	if cfg.State.Backend != BackendFile || cfg.State.LockPath != cfg.State.Path+".lock" {
		t.Errorf("state = %+v", cfg.State)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.RetryBaseDelay().Seconds() != 5 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "podcasts.yaml", `
podcasts:
  - id: my-show
    name: My Show
    detection: scrape
    transcript_method: scrape
    show_page_url: https://example.com/show
    scrape:
      section_heading: Show Notes
      stop_markers: ["Sponsors"]
run:
  workers: 8
state:
  backend: sqlite
  path: /tmp/digest/state.db
notify:
  webhook_url: https://ntfy.example.com/podcasts
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Podcasts) != 1 || cfg.Podcasts[0].ID != "my-show" {
		t.Fatalf("podcasts = %+v", cfg.Podcasts)
	}
	if cfg.Podcasts[0].Scrape.SectionHeading != "Show Notes" || cfg.Podcasts[0].Scrape.StopMarkers[0] != "Sponsors" {
		t.Errorf("scrape options = %+v", cfg.Podcasts[0].Scrape)
	}
	if cfg.Run.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Run.Workers)
	}
	if cfg.State.Backend != BackendSQLite || cfg.State.LockPath != "/tmp/digest/state.db.lock" {
		t.Errorf("state = %+v", cfg.State)
	}
	// Unset sections keep their defaults.
	if cfg.OpenAI.SummaryModel != "gpt-4o" {
		t.Errorf("summary model = %q", cfg.OpenAI.SummaryModel)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "podcasts.toml", `
[[podcasts]]
id = "feed-show"
detection = "feed"
transcript_method = "transcribe"
feed_url = "https://example.com/rss"

[retry]
max_attempts = 5
base_delay_seconds = 1

[renderer]
kind = "chrome"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Podcasts) != 1 || cfg.Podcasts[0].FeedURL != "https://example.com/rss" {
		t.Errorf("podcasts = %+v", cfg.Podcasts)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Renderer.Kind != RendererChrome {
		t.Errorf("retry = %+v renderer = %+v", cfg.Retry, cfg.Renderer)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PODCAST_DIGEST_WORKERS", "7")
	t.Setenv("PODCAST_DIGEST_STATE_BACKEND", "Postgres")
	t.Setenv("PODCAST_DIGEST_POSTGRES_DSN", "postgres://localhost/podcasts")
	t.Setenv("OPENAI_API_KEY", "sk-generic")
	t.Setenv("PODCAST_DIGEST_OPENAI_API_KEY", "sk-specific")
	t.Setenv("PODCAST_DIGEST_WEBHOOK_HTML", "yes")
	t.Setenv("PODCAST_DIGEST_TIMEOUT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Run.Workers != 7 {
		t.Errorf("workers = %d, want 7", cfg.Run.Workers)
	}
	if cfg.State.Backend != BackendPostgres || cfg.Database.PostgresDSN != "postgres://localhost/podcasts" {
		t.Errorf("state = %+v db = %+v", cfg.State, cfg.Database)
	}
	if cfg.OpenAI.APIKey != "sk-specific" {
		t.Errorf("api key = %q, want the prefixed variable to win", cfg.OpenAI.APIKey)
	}
	if !cfg.Notify.HTML {
		t.Error("webhook html not enabled")
	}
	if cfg.Run.TimeoutSeconds != 1800 {
		t.Errorf("timeout = %d, want the default kept on a bad value", cfg.Run.TimeoutSeconds)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{
			name:    "missing locator",
			file:    "c.yaml",
			content: "podcasts:\n  - id: x\n    detection: feed\n    transcript_method: transcribe\n",
			wantMsg: "feed_url",
		},
		{
			name:    "duplicate id",
			file:    "c.yaml",
			content: "podcasts:\n  - {id: x, detection: feed, transcript_method: transcribe, feed_url: u}\n  - {id: x, detection: feed, transcript_method: transcribe, feed_url: u}\n",
			wantMsg: "duplicate podcast id",
		},
		{
			name:    "unknown backend",
			file:    "c.yaml",
			content: "state:\n  backend: redis\n",
			wantMsg: "unknown state backend",
		},
		{
			name:    "unknown method",
			file:    "c.yaml",
			content: "podcasts:\n  - {id: x, detection: carrier-pigeon, transcript_method: transcribe}\n",
			wantMsg: "unknown detection method",
		},
		{
			name:    "unsupported format",
			file:    "c.json",
			content: "{}",
			wantMsg: "unsupported config format",
		},
		{
			name:    "broken yaml",
			file:    "c.yaml",
			content: "podcasts: [",
			wantMsg: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
