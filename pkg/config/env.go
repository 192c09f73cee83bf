package config

import (
	"os"
	"strconv"
	"strings"
)

const envPrefix = "PODCAST_DIGEST_"

// loadFromEnv applies PODCAST_DIGEST_* overrides. OPENAI_API_KEY is also
// honoured since it is the variable the OpenAI tooling already uses.
func loadFromEnv(cfg *Config) {
	if v := getenv("WORKERS"); v != "" {
		cfg.Run.Workers = parseInt(v, cfg.Run.Workers)
	}
	if v := getenv("TIMEOUT"); v != "" {
		cfg.Run.TimeoutSeconds = parseInt(v, cfg.Run.TimeoutSeconds)
	}
	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		cfg.Run.RequestTimeoutSeconds = parseInt(v, cfg.Run.RequestTimeoutSeconds)
	}
	if v := getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}
	if v := getenv("RETRY_BASE_DELAY"); v != "" {
		cfg.Retry.BaseDelaySeconds = parseInt(v, cfg.Retry.BaseDelaySeconds)
	}

	if v := getenv("STATE_BACKEND"); v != "" {
		cfg.State.Backend = strings.ToLower(v)
	}
	if v := getenv("STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := getenv("ARCHIVE_BACKEND"); v != "" {
		cfg.Archive.Backend = strings.ToLower(v)
	}

	if v := getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := getenv("SUPABASE_URL"); v != "" {
		cfg.Database.SupabaseURL = v
	}
	if v := getenv("SUPABASE_KEY"); v != "" {
		cfg.Database.SupabaseKey = v
	}
	if v := getenv("SUPABASE_PASSWORD"); v != "" {
		cfg.Database.SupabasePassword = v
	}
	if v := getenv("MONGO_URI"); v != "" {
		cfg.Database.MongoURI = v
	}

	if v := getenv("RENDERER"); v != "" {
		cfg.Renderer.Kind = strings.ToLower(v)
	}
	if v := getenv("CHROME_PATH"); v != "" {
		cfg.Renderer.ChromePath = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.SummaryModel = v
	}

	if v := getenv("WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := getenv("WEBHOOK_TOKEN"); v != "" {
		cfg.Notify.WebhookToken = v
	}
	if v := getenv("WEBHOOK_HTML"); v != "" {
		cfg.Notify.HTML = parseBool(v)
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
