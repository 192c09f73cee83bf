// Package transcript produces the transcript handed to summarization for a
// newly detected episode. Every failure path ends in domain.TranscriptNotFound:
// the episode description is never used in its place.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"podcast-digest/pkg/audio"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
	"podcast-digest/pkg/retry"
	"podcast-digest/pkg/sources"
	"podcast-digest/pkg/transcribe"
)

const (
	// DefaultMaxChars bounds the transcript passed downstream.
	DefaultMaxChars = 150000

	truncationSuffix = "... [transcript truncated]"
)

// Router looks up transcripts from scrape and archive sources.
// *sources.Dispatcher implements it and applies its own retry policy.
type Router interface {
	Transcript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error)
}

// AudioFetcher downloads episode audio. *httpclient.HTTPClient implements it.
type AudioFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Acquirer resolves the transcript of one episode according to the podcast's
// transcript method.
type Acquirer struct {
	Router      Router
	Transcriber transcribe.Transcriber
	Audio       AudioFetcher
	Retry       *retry.Executor

	// MaxChars is measured in runes. Zero means DefaultMaxChars.
	MaxChars int
	// ChunkBytes is the upload limit per transcription request. Zero means audio.MaxUploadBytes.
	ChunkBytes int

	Logger *slog.Logger
}

// Acquire never fails: a transcript that cannot be obtained is returned as
// domain.TranscriptNotFound and the reason is logged.
func (a *Acquirer) Acquire(ctx context.Context, cfg domain.PodcastConfig, det sources.Detection) domain.Transcript {
	logger := logging.NewComponentLogger(a.Logger, "transcript").With("podcast_id", cfg.ID, "method", string(cfg.TranscriptMethod))

	if det.Bundled != nil {
		logger.Debug("using transcript bundled with detection")
		return a.truncate(*det.Bundled, logger)
	}

	var (
		t   domain.Transcript
		err error
	)
	switch cfg.TranscriptMethod {
	case domain.TranscriptScrape, domain.TranscriptArchive:
		if a.Router == nil {
			err = fmt.Errorf("%w: no transcript router configured", domain.ErrInvalidConfig)
			break
		}
		t, err = a.Router.Transcript(ctx, cfg, det.Episode)
	case domain.TranscriptTranscribe:
		t, err = a.transcribe(ctx, cfg, det.Episode, logger)
	default:
		err = fmt.Errorf("%w: unknown transcript method %q", domain.ErrInvalidConfig, cfg.TranscriptMethod)
	}

	if err != nil {
		logger.Warn("transcript unavailable", "episode", det.Episode.Title, "error", err)
		return domain.TranscriptNotFound()
	}
	if !t.Found() {
		logger.Info("no transcript found", "episode", det.Episode.Title)
		return t
	}
	return a.truncate(t, logger)
}

func (a *Acquirer) transcribe(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode, logger *slog.Logger) (domain.Transcript, error) {
	if a.Transcriber == nil || a.Audio == nil {
		return domain.TranscriptNotFound(), fmt.Errorf("%w: transcription is not configured", domain.ErrInvalidConfig)
	}
	if ep.AudioURL == "" {
		return domain.TranscriptNotFound(), fmt.Errorf("%w: episode %q has no audio enclosure", domain.ErrParseFailure, ep.Title)
	}

	data, err := retry.Run(ctx, a.executor(), "download audio "+cfg.ID, func(ctx context.Context) ([]byte, error) {
		body, _, err := a.Audio.Fetch(ctx, ep.AudioURL)
		return body, err
	})
	if err != nil {
		return domain.TranscriptNotFound(), fmt.Errorf("download audio: %w", err)
	}

	segments, err := audio.Chunk(data, a.chunkBytes())
	if err != nil {
		return domain.TranscriptNotFound(), err
	}
	logger.Info("transcribing audio", "size", humanize.IBytes(uint64(len(data))), "segments", len(segments))

	texts := make([]string, 0, len(segments))
	for i, seg := range segments {
		name := fmt.Sprintf("%s-%03d.mp3", cfg.ID, i)
		text, err := retry.Run(ctx, a.executor(), "transcribe "+name, func(ctx context.Context) (string, error) {
			return a.Transcriber.Transcribe(ctx, seg, name)
		})
		if err != nil {
			return domain.TranscriptNotFound(), fmt.Errorf("segment %d of %d: %w", i+1, len(segments), err)
		}
		texts = append(texts, text)
	}

	return domain.TranscriptText(audio.Join(texts)), nil
}

func (a *Acquirer) truncate(t domain.Transcript, logger *slog.Logger) domain.Transcript {
	if !t.Found() {
		return t
	}
	text, cut := Truncate(t.Text(), a.maxChars())
	if cut {
		logger.Info("transcript truncated", "max_chars", a.maxChars())
	}
	return domain.TranscriptText(text)
}

// Truncate shortens text to at most maxChars runes including the truncation
// marker, preferring to end on a word boundary.
func Truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}

	budget := maxChars - utf8.RuneCountInString(truncationSuffix)
	if budget <= 0 {
		return string([]rune(truncationSuffix)[:maxChars]), true
	}

	kept := []rune(text)[:budget]
	if i := lastSpace(kept); i > budget/2 {
		kept = kept[:i]
	}
	return strings.TrimRightFunc(string(kept), unicode.IsSpace) + truncationSuffix, true
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

func (a *Acquirer) executor() *retry.Executor {
	if a.Retry == nil {
		return &retry.Executor{Logger: a.Logger}
	}
	return a.Retry
}

func (a *Acquirer) maxChars() int {
	if a.MaxChars <= 0 {
		return DefaultMaxChars
	}
	return a.MaxChars
}

func (a *Acquirer) chunkBytes() int {
	if a.ChunkBytes <= 0 {
		return audio.MaxUploadBytes
	}
	return a.ChunkBytes
}
