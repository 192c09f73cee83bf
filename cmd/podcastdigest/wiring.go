package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podcast-digest/pkg/archive"
	"podcast-digest/pkg/browser"
	"podcast-digest/pkg/config"
	"podcast-digest/pkg/db"
	"podcast-digest/pkg/digest"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/httpclient"
	"podcast-digest/pkg/notify"
	"podcast-digest/pkg/retry"
	"podcast-digest/pkg/sources"
	"podcast-digest/pkg/state"
	"podcast-digest/pkg/summary"
	"podcast-digest/pkg/transcribe"
	"podcast-digest/pkg/transcript"
)

// resources opens each database at most once per invocation, so state and
// archive can share a connection.
type resources struct {
	cfg    *config.Config
	logger *slog.Logger

	sqlite   map[string]*db.SQLiteClient
	postgres *db.PostgresClient
	supabase *db.SupabaseClient
	mongo    *db.Client
	closers  []func()
}

func newResources(cfg *config.Config, logger *slog.Logger) *resources {
	return &resources{cfg: cfg, logger: logger, sqlite: map[string]*db.SQLiteClient{}}
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func (r *resources) sqliteClient(ctx context.Context, path string) (*db.SQLiteClient, error) {
	if c, ok := r.sqlite[path]; ok {
		return c, nil
	}
	c := db.NewSQLiteClient(path)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	r.sqlite[path] = c
	r.closers = append(r.closers, func() { _ = c.Close() })
	return c, nil
}

func (r *resources) postgresClient(ctx context.Context) (*db.PostgresClient, error) {
	if r.postgres != nil {
		return r.postgres, nil
	}
	c := db.NewPostgresClient(db.PostgresConfig{DSN: r.cfg.Database.PostgresDSN})
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	r.postgres = c
	r.closers = append(r.closers, func() { _ = c.Close() })
	return c, nil
}

func (r *resources) supabaseClient(ctx context.Context) (*db.SupabaseClient, error) {
	if r.supabase != nil {
		return r.supabase, nil
	}
	c := db.NewSupabaseClient(db.SupabaseConfig{
		SupabaseURL: r.cfg.Database.SupabaseURL,
		SupabaseKey: r.cfg.Database.SupabaseKey,
		Password:    r.cfg.Database.SupabasePassword,
	})
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	r.supabase = c
	r.closers = append(r.closers, func() { _ = c.Close() })
	return c, nil
}

func (r *resources) mongoClient(ctx context.Context) (*db.Client, error) {
	if r.mongo != nil {
		return r.mongo, nil
	}
	if strings.TrimSpace(r.cfg.Database.MongoURI) == "" {
		return nil, fmt.Errorf("%w: mongo_uri is required", domain.ErrInvalidConfig)
	}
	c := db.NewClient(r.cfg.Database.MongoURI, r.cfg.Database.MongoDatabase)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	r.mongo = c
	r.closers = append(r.closers, func() { _ = c.Close(context.Background()) })
	return c, nil
}

// sqlProvider returns the SQL database for backend, for the backends that have one.
func (r *resources) sqlProvider(ctx context.Context, backend, sqlitePath string) (db.DBProvider, error) {
	switch backend {
	case config.BackendSQLite:
		return r.sqliteClient(ctx, sqlitePath)
	case config.BackendPostgres:
		return r.postgresClient(ctx)
	case config.BackendSupabase:
		c, err := r.supabaseClient(ctx)
		if err != nil {
			return nil, err
		}
		if !c.HasDirectDB() {
			return nil, fmt.Errorf("%w: supabase backend needs a database password for SQL access", domain.ErrInvalidConfig)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: backend %q has no SQL database", domain.ErrInvalidConfig, backend)
}

func (r *resources) openStore(ctx context.Context) (*state.Store, error) {
	var backend state.Backend

	switch r.cfg.State.Backend {
	case config.BackendFile:
		backend = state.NewFileBackend(r.cfg.State.Path)
	case config.BackendMongo:
		c, err := r.mongoClient(ctx)
		if err != nil {
			return nil, err
		}
		backend = state.NewMongoBackend(c)
	default:
		provider, err := r.sqlProvider(ctx, r.cfg.State.Backend, r.cfg.State.Path)
		if err != nil {
			return nil, err
		}
		sqlBackend := state.NewSQLBackend(provider)
		if err := sqlBackend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		backend = sqlBackend
	}

	return state.Open(ctx, backend, r.logger)
}

// openArchive returns nil when archiving is disabled.
func (r *resources) openArchive(ctx context.Context) (archive.Archive, error) {
	switch r.cfg.Archive.Backend {
	case config.BackendNone, "":
		return nil, nil
	case config.BackendMongo:
		c, err := r.mongoClient(ctx)
		if err != nil {
			return nil, err
		}
		return archive.NewMongo(c), nil
	case config.BackendSupabase:
		c, err := r.supabaseClient(ctx)
		if err != nil {
			return nil, err
		}
		if !c.HasDirectDB() {
			return archive.NewSupabaseREST(c), nil
		}
	}
	return r.sqlArchive(ctx, r.cfg.Archive.Backend)
}

func (r *resources) sqlArchive(ctx context.Context, backend string) (*archive.SQL, error) {
	provider, err := r.sqlProvider(ctx, backend, r.cfg.Archive.SQLitePath)
	if err != nil {
		return nil, err
	}
	a := archive.NewSQL(provider)
	if err := a.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *resources) executor() *retry.Executor {
	return &retry.Executor{
		MaxAttempts: r.cfg.Retry.MaxAttempts,
		BaseDelay:   r.cfg.RetryBaseDelay(),
		MaxDelay:    r.cfg.RetryMaxDelay(),
		Logger:      r.logger,
	}
}

func (r *resources) renderer() browser.Renderer {
	if r.cfg.Renderer.Kind == config.RendererChrome {
		return browser.NewChromeRenderer(r.cfg.Renderer.ChromePath, r.logger)
	}
	return browser.NewHTTPRenderer(r.cfg.RequestTimeout())
}

func (r *resources) dispatcher() *sources.Dispatcher {
	timeout := r.cfg.RequestTimeout()
	renderer := r.renderer()
	scrape := sources.NewScrapeSource(renderer, timeout, r.logger)
	archive := sources.NewArchiveSource(sources.AutoLister{Web: sources.NewHTMLLister(renderer, timeout)}, r.cfg.Archive.FilenamePrefixes, r.logger)
	archive.Enricher = scrape
	return &sources.Dispatcher{
		Feed:    sources.NewFeedSource(timeout, r.logger),
		Scrape:  scrape,
		Archive: archive,
		Retry:   r.executor(),
		Logger:  r.logger,
	}
}

// runner wires a digest.Runner. checkOnly skips everything past detection,
// so no API keys or archive are needed.
func (r *resources) runner(ctx context.Context, checkOnly bool) (*digest.Runner, error) {
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}

	dispatcher := r.dispatcher()
	run := &digest.Runner{
		Checker: dispatcher,
		Store:   store,
		Retry:   r.executor(),
		Logger:  r.logger,
	}
	if checkOnly {
		return run, nil
	}

	ai := r.cfg.OpenAI
	summarizer, err := summary.NewOpenAISummarizer(summary.Config{
		APIKey:      ai.APIKey,
		BaseURL:     ai.BaseURL,
		Model:       ai.SummaryModel,
		Temperature: ai.Temperature,
		MaxTokens:   ai.MaxTokens,
	}, r.logger)
	if err != nil {
		return nil, err
	}
	run.Summarizer = summarizer

	// Audio downloads are large; give them the whole run budget.
	run.Acquirer = &transcript.Acquirer{
		Router:      dispatcher,
		Transcriber: transcribe.NewWhisperClient(transcribe.Config{APIKey: ai.APIKey, BaseURL: ai.BaseURL, Model: ai.TranscriptionModel}, r.logger),
		Audio:       httpclient.NewClient(httpclient.BrowserClient, r.cfg.RunTimeout()),
		Retry:       r.executor(),
		MaxChars:    r.cfg.Run.MaxTranscriptChars,
		Logger:      r.logger,
	}

	if strings.TrimSpace(r.cfg.Notify.WebhookURL) != "" {
		webhook, err := notify.NewWebhook(notify.WebhookConfig{
			URL:     r.cfg.Notify.WebhookURL,
			Token:   r.cfg.Notify.WebhookToken,
			HTML:    r.cfg.Notify.HTML,
			Timeout: r.cfg.RequestTimeout(),
		}, r.logger)
		if err != nil {
			return nil, err
		}
		run.Deliverer = webhook
		run.Reporter = webhook
	} else {
		logDeliverer := notify.NewLogDeliverer(r.logger)
		run.Deliverer = logDeliverer
		run.Reporter = logDeliverer
	}

	archiveStore, err := r.openArchive(ctx)
	if err != nil {
		return nil, err
	}
	run.Archive = archiveStore

	return run, nil
}
