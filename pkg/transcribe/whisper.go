package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

// Transcriber turns one audio segment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Config holds the transcription API settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperClient transcribes audio with the OpenAI transcription endpoint.
type WhisperClient struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewWhisperClient creates a client. Model defaults to whisper-1.
func NewWhisperClient(cfg Config, logger *slog.Logger) *WhisperClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	return &WhisperClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logging.NewComponentLogger(logger, "whisper"),
	}
}

// Transcribe uploads one segment. Rate limits, timeouts and server errors are
// reported as domain.ErrSourceUnavailable so the caller can retry them.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	c.logger.Debug("transcribing segment", "file", filename, "size", humanize.IBytes(uint64(len(audio))))

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, "audio/mpeg"),
		Model: openai.AudioModel(c.model),
	})
	if err != nil {
		return "", classify(err)
	}
	return resp.Text, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
			return fmt.Errorf("transcribe: %w", errors.Join(domain.ErrSourceUnavailable, err))
		}
		return fmt.Errorf("transcribe: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Anything else is a transport failure.
	return fmt.Errorf("transcribe: %w", errors.Join(domain.ErrSourceUnavailable, err))
}
