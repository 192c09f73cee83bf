// Package summary turns episode transcripts into structured summaries.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Summarizer produces the text delivered for a new episode.
type Summarizer interface {
	Summarize(ctx context.Context, ep domain.Episode, t domain.Transcript) (string, error)
}

// Config holds the chat model settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// OpenAISummarizer summarizes transcripts with a chat completion model.
type OpenAISummarizer struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *slog.Logger
}

// NewOpenAISummarizer validates cfg and builds the client.
func NewOpenAISummarizer(cfg Config, logger *slog.Logger) (*OpenAISummarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: openai api key missing", domain.ErrInvalidConfig)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	s := &OpenAISummarizer{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logging.NewComponentLogger(logger, "summarizer"),
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.temperature <= 0 {
		s.temperature = 0.3
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 6000
	}
	return s, nil
}

// Summarize returns the NotFound sentinel text unchanged when there is no
// transcript. The model is only called with real transcript text.
func (s *OpenAISummarizer) Summarize(ctx context.Context, ep domain.Episode, t domain.Transcript) (string, error) {
	if !t.Found() {
		s.logger.Warn("no transcript available", "podcast_id", ep.PodcastID, "episode", ep.Title)
		return t.String(), nil
	}

	s.logger.Info("requesting summary", "podcast_id", ep.PodcastID, "model", s.model)
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(t.Text())),
		},
		Temperature: openai.Float(s.temperature),
		MaxTokens:   openai.Int(s.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", ep.Title, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}

	s.logger.Debug("summary usage",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
