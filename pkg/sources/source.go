// Package sources turns the three upstream kinds (feeds, scraped show pages
// and transcript archives) into one "latest episode" contract.
package sources

import (
	"context"

	"podcast-digest/pkg/domain"
)

// Detection is the latest episode a source reported. Bundled is set when the
// source delivered the transcript together with the episode (archives do).
type Detection struct {
	Episode domain.Episode
	Bundled *domain.Transcript
}

// Detector reports the latest episode of a podcast.
type Detector interface {
	DetectLatest(ctx context.Context, cfg domain.PodcastConfig) (Detection, error)
}

// TranscriptSource looks up the transcript of a known episode.
// A transcript that does not exist is domain.TranscriptNotFound with a nil error;
// errors are reserved for failures worth reporting or retrying.
type TranscriptSource interface {
	AcquireTranscript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error)
}

// Strategy is a source that can both detect episodes and supply transcripts.
type Strategy interface {
	Detector
	TranscriptSource
}

func bundled(t domain.Transcript) *domain.Transcript {
	return &t
}
