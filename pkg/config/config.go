// Package config loads the podcast list and runtime settings.
//
// Precedence, lowest first: built-in defaults, the config file (.yaml, .yml or
// .toml), PODCAST_DIGEST_* environment variables, then CLI flags applied by
// the caller. Validate fills remaining defaults and rejects bad podcasts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"podcast-digest/pkg/domain"
)

// State backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMongo    = "mongo"
	BackendNone     = "none"
)

// Renderers.
const (
	RendererHTTP   = "http"
	RendererChrome = "chrome"
)

type Config struct {
	Podcasts []domain.PodcastConfig `yaml:"podcasts" toml:"podcasts"`

	Run      RunConfig      `yaml:"run" toml:"run"`
	Retry    RetryConfig    `yaml:"retry" toml:"retry"`
	State    StateConfig    `yaml:"state" toml:"state"`
	Archive  ArchiveConfig  `yaml:"archive" toml:"archive"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Renderer RendererConfig `yaml:"renderer" toml:"renderer"`
	OpenAI   OpenAIConfig   `yaml:"openai" toml:"openai"`
	Notify   NotifyConfig   `yaml:"notify" toml:"notify"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

type RunConfig struct {
	Workers               int `yaml:"workers" toml:"workers"`
	TimeoutSeconds        int `yaml:"timeout_seconds" toml:"timeout_seconds"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	// MaxTranscriptChars bounds the transcript passed to the summarizer.
	MaxTranscriptChars int `yaml:"max_transcript_chars" toml:"max_transcript_chars"`
}

type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" toml:"max_attempts"`
	BaseDelaySeconds int `yaml:"base_delay_seconds" toml:"base_delay_seconds"`
	MaxDelaySeconds  int `yaml:"max_delay_seconds" toml:"max_delay_seconds"`
}

type StateConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// Path is the JSON file for the file backend and the database file for sqlite.
	Path string `yaml:"path" toml:"path"`
	// LockPath guards against concurrent runs. Defaults to Path + ".lock".
	LockPath string `yaml:"lock_path" toml:"lock_path"`
}

type ArchiveConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// SQLitePath is used when Backend is sqlite.
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
	// FilenamePrefixes are stripped from archive file names before guest matching.
	FilenamePrefixes []string `yaml:"filename_prefixes" toml:"filename_prefixes"`
}

type DatabaseConfig struct {
	PostgresDSN      string `yaml:"postgres_dsn" toml:"postgres_dsn"`
	SupabaseURL      string `yaml:"supabase_url" toml:"supabase_url"`
	SupabaseKey      string `yaml:"supabase_key" toml:"supabase_key"`
	SupabasePassword string `yaml:"supabase_password" toml:"supabase_password"`
	MongoURI         string `yaml:"mongo_uri" toml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database" toml:"mongo_database"`
}

type RendererConfig struct {
	Kind       string `yaml:"kind" toml:"kind"`
	ChromePath string `yaml:"chrome_path" toml:"chrome_path"`
}

type OpenAIConfig struct {
	APIKey             string  `yaml:"api_key" toml:"api_key"`
	BaseURL            string  `yaml:"base_url" toml:"base_url"`
	SummaryModel       string  `yaml:"summary_model" toml:"summary_model"`
	TranscriptionModel string  `yaml:"transcription_model" toml:"transcription_model"`
	Temperature        float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens          int64   `yaml:"max_tokens" toml:"max_tokens"`
}

type NotifyConfig struct {
	WebhookURL     string `yaml:"webhook_url" toml:"webhook_url"`
	WebhookToken   string `yaml:"webhook_token" toml:"webhook_token"`
	HTML           bool   `yaml:"html" toml:"html"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// Default returns the built-in configuration, including the default podcasts.
func Default() Config {
	return Config{
		Podcasts: DefaultPodcasts(),
		Run: RunConfig{
			Workers:               3,
			TimeoutSeconds:        1800,
			RequestTimeoutSeconds: 30,
			MaxTranscriptChars:    150000,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseDelaySeconds: 5,
			MaxDelaySeconds:  60,
		},
		State: StateConfig{
			Backend: BackendFile,
			Path:    filepath.Join("data", "last_episodes.json"),
		},
		Archive: ArchiveConfig{
			Backend:          BackendNone,
			FilenamePrefixes: []string{"Lenny's Podcast - ", "Lennys Podcast - ", "LP - "},
		},
		Database: DatabaseConfig{
			MongoDatabase: "podcastdigest",
		},
		Renderer: RendererConfig{Kind: RendererHTTP},
		OpenAI: OpenAIConfig{
			SummaryModel:       "gpt-4o",
			TranscriptionModel: "whisper-1",
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// DefaultPodcasts are the shows monitored when no config file lists any.
func DefaultPodcasts() []domain.PodcastConfig {
	return []domain.PodcastConfig{
		{
			ID:               "lennys-podcast",
			Name:             "Lenny's Podcast",
			Category:         "Product Management",
			Detection:        domain.DetectArchive,
			TranscriptMethod: domain.TranscriptArchive,
			ArchiveURL:       "https://www.dropbox.com/scl/fo/yxi4s2w998p1gvtpu4193/AMdNPR8AOw0lMklwtnC0TrQ?rlkey=j06x0nipoti519e0xgm23zsn9&e=1&st=ahz0fj11&dl=0",
			Website:          "https://www.lennysnewsletter.com/podcast",
		},
		{
			ID:               "sub-club",
			Name:             "Sub Club by RevenueCat",
			Category:         "Mobile App Monetization",
			Detection:        domain.DetectFeed,
			TranscriptMethod: domain.TranscriptScrape,
			FeedURL:          "https://feeds.transistor.fm/sub-club",
			ShowPageURL:      "https://podcasts.apple.com/us/podcast/sub-club-by-revenuecat/id1538057974",
			Website:          "https://subclub.com/",
		},
		{
			ID:               "20vc",
			Name:             "The Twenty Minute VC",
			Category:         "Venture Capital",
			Detection:        domain.DetectFeed,
			TranscriptMethod: domain.TranscriptTranscribe,
			FeedURL:          "https://thetwentyminutevc.libsyn.com/rss",
			Website:          "https://www.thetwentyminutevc.com",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: unsupported config format %q", domain.ErrInvalidConfig, ext)
	}
	if err != nil {
		return fmt.Errorf("%w: parse config %s: %v", domain.ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate fills defaults for unset values and checks every podcast.
func (c *Config) Validate() error {
	if c.Run.Workers <= 0 {
		c.Run.Workers = 3
	}
	if c.Run.RequestTimeoutSeconds <= 0 {
		c.Run.RequestTimeoutSeconds = 30
	}
	if c.Run.MaxTranscriptChars <= 0 {
		c.Run.MaxTranscriptChars = 150000
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelaySeconds < 0 {
		c.Retry.BaseDelaySeconds = 0
	}
	if c.State.Backend == "" {
		c.State.Backend = BackendFile
	}
	if c.State.Path == "" {
		c.State.Path = filepath.Join("data", "last_episodes.json")
	}
	if c.State.LockPath == "" {
		c.State.LockPath = c.State.Path + ".lock"
	}
	if c.Archive.Backend == "" {
		c.Archive.Backend = BackendNone
	}
	if c.Renderer.Kind == "" {
		c.Renderer.Kind = RendererHTTP
	}
	if c.Database.MongoDatabase == "" {
		c.Database.MongoDatabase = "podcastdigest"
	}

	var errs []error
	switch c.State.Backend {
	case BackendFile, BackendSQLite, BackendPostgres, BackendSupabase, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown state backend %q", domain.ErrInvalidConfig, c.State.Backend))
	}
	switch c.Archive.Backend {
	case BackendNone, BackendSQLite, BackendPostgres, BackendSupabase, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown archive backend %q", domain.ErrInvalidConfig, c.Archive.Backend))
	}
	if c.Archive.Backend == BackendSQLite && c.Archive.SQLitePath == "" {
		c.Archive.SQLitePath = filepath.Join("data", "archive.db")
	}
	switch c.Renderer.Kind {
	case RendererHTTP, RendererChrome:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown renderer %q", domain.ErrInvalidConfig, c.Renderer.Kind))
	}

	if len(c.Podcasts) == 0 {
		errs = append(errs, fmt.Errorf("%w: no podcasts configured", domain.ErrInvalidConfig))
	}
	seen := make(map[string]bool, len(c.Podcasts))
	for _, p := range c.Podcasts {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate podcast id %q", domain.ErrInvalidConfig, p.ID))
		}
		seen[p.ID] = true
	}

	return errors.Join(errs...)
}

// Podcast returns the podcast with the given id.
func (c *Config) Podcast(id string) (domain.PodcastConfig, bool) {
	for _, p := range c.Podcasts {
		if p.ID == id {
			return p, true
		}
	}
	return domain.PodcastConfig{}, false
}

func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Run.RequestTimeoutSeconds) * time.Second
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelaySeconds) * time.Second
}

func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelaySeconds) * time.Second
}
