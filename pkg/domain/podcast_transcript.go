package domain

import "time"

// PodcastTranscript is the archived record of one delivered episode:
// the transcript that was used and the summary that went out.
type PodcastTranscript struct {
	// PodcastID is the configured podcast the episode belongs to.
	PodcastID string `bson:"podcast_id" json:"podcast_id"`

	// Identity is the episode identity that was recorded in the tracker.
	Identity Identity `bson:"identity" json:"identity"`

	// URL is the episode page URL, when the source provides one.
	URL string `bson:"url,omitempty" json:"url,omitempty"`

	Title string `bson:"title" json:"title"`

	// Transcript is empty when TranscriptFound is false.
	Transcript      string `bson:"transcript,omitempty" json:"transcript,omitempty"`
	TranscriptFound bool   `bson:"transcript_found" json:"transcript_found"`

	Summary string `bson:"summary" json:"summary"`

	// CrawledAt is when the episode was processed.
	CrawledAt time.Time `bson:"crawled_at" json:"crawled_at"`
}

// NewPodcastTranscript builds the archive record for a delivered episode.
func NewPodcastTranscript(ep Episode, t Transcript, summary string, at time.Time) *PodcastTranscript {
	return &PodcastTranscript{
		PodcastID:       ep.PodcastID,
		Identity:        ep.Identity,
		URL:             ep.URL,
		Title:           ep.Title,
		Transcript:      t.Text(),
		TranscriptFound: t.Found(),
		Summary:         summary,
		CrawledAt:       at,
	}
}
