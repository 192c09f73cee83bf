package sources

import (
	"context"
	"fmt"
	"log/slog"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
	"podcast-digest/pkg/retry"
)

// Status is the outcome of a freshness check.
type Status int

const (
	Unchanged Status = iota
	New
	DetectionFailed
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case New:
		return "new"
	case DetectionFailed:
		return "detection_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Verdict is the result of Dispatcher.Check. Detection is set for New,
// Err for DetectionFailed.
type Verdict struct {
	Status    Status
	Detection Detection
	Err       error
}

// Dispatcher routes each podcast to the source named by its configuration.
// Every upstream call goes through Retry.
type Dispatcher struct {
	Feed    Detector
	Scrape  Strategy
	Archive Strategy
	Retry   *retry.Executor
	Logger  *slog.Logger
}

// Check fetches the latest episode and compares its identity with lastSeen.
// An empty lastSeen means the podcast has never been delivered, so any
// episode is new.
func (d *Dispatcher) Check(ctx context.Context, cfg domain.PodcastConfig, lastSeen domain.Identity) Verdict {
	logger := logging.NewComponentLogger(d.Logger, "dispatcher").With("podcast_id", cfg.ID)

	detector, err := d.detector(cfg)
	if err != nil {
		return Verdict{Status: DetectionFailed, Err: err}
	}

	det, err := retry.Run(ctx, d.executor(), "detect "+cfg.ID, func(ctx context.Context) (Detection, error) {
		return detector.DetectLatest(ctx, cfg)
	})
	if err != nil {
		logger.Warn("detection failed", "error", err)
		return Verdict{Status: DetectionFailed, Err: err}
	}
	if det.Episode.Identity.IsZero() {
		return Verdict{Status: DetectionFailed, Err: fmt.Errorf("%w: source returned an episode without identity", domain.ErrParseFailure)}
	}

	if det.Episode.Identity.Equal(lastSeen) {
		logger.Debug("no new episode", "identity", det.Episode.Identity.Value)
		return Verdict{Status: Unchanged, Detection: det}
	}

	logger.Info("new episode detected", "title", det.Episode.Title, "identity", det.Episode.Identity.Value)
	return Verdict{Status: New, Detection: det}
}

// Transcript asks the source named by the transcript method for the episode's
// transcript. Transcription from audio is not a source concern and is rejected.
func (d *Dispatcher) Transcript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error) {
	var src TranscriptSource
	switch cfg.TranscriptMethod {
	case domain.TranscriptScrape:
		src = d.Scrape
	case domain.TranscriptArchive:
		src = d.Archive
	default:
		return domain.TranscriptNotFound(), fmt.Errorf("%w: podcast %q: no transcript source for method %q", domain.ErrInvalidConfig, cfg.ID, cfg.TranscriptMethod)
	}
	if src == nil {
		return domain.TranscriptNotFound(), fmt.Errorf("%w: podcast %q: %s transcripts are not configured", domain.ErrInvalidConfig, cfg.ID, cfg.TranscriptMethod)
	}

	return retry.Run(ctx, d.executor(), "transcript "+cfg.ID, func(ctx context.Context) (domain.Transcript, error) {
		return src.AcquireTranscript(ctx, cfg, ep)
	})
}

func (d *Dispatcher) detector(cfg domain.PodcastConfig) (Detector, error) {
	var det Detector
	switch cfg.Detection {
	case domain.DetectFeed:
		det = d.Feed
	case domain.DetectScrape:
		det = d.Scrape
	case domain.DetectArchive:
		det = d.Archive
	default:
		return nil, fmt.Errorf("%w: podcast %q: unknown detection method %q", domain.ErrInvalidConfig, cfg.ID, cfg.Detection)
	}
	if det == nil {
		return nil, fmt.Errorf("%w: podcast %q: %s detection is not configured", domain.ErrInvalidConfig, cfg.ID, cfg.Detection)
	}
	return det, nil
}

func (d *Dispatcher) executor() *retry.Executor {
	if d.Retry == nil {
		return &retry.Executor{Logger: d.Logger}
	}
	return d.Retry
}
