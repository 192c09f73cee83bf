package db

import (
	"time"

	"podcast-digest/pkg/domain"
)

// TranscriptTable is the SQL and REST table holding archived transcripts.
const TranscriptTable = "podcast_transcript"

// TranscriptRow is the flat column layout of TranscriptTable.
type TranscriptRow struct {
	PodcastID       string    `json:"podcast_id"`
	IdentityKind    string    `json:"identity_kind"`
	IdentityValue   string    `json:"identity_value"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Transcript      string    `json:"transcript"`
	TranscriptFound bool      `json:"transcript_found"`
	Summary         string    `json:"summary"`
	CrawledAt       time.Time `json:"crawled_at"`
}

// NewTranscriptRow flattens an archive record.
func NewTranscriptRow(t *domain.PodcastTranscript) TranscriptRow {
	return TranscriptRow{
		PodcastID:       t.PodcastID,
		IdentityKind:    string(t.Identity.Kind),
		IdentityValue:   t.Identity.Value,
		URL:             t.URL,
		Title:           t.Title,
		Transcript:      t.Transcript,
		TranscriptFound: t.TranscriptFound,
		Summary:         t.Summary,
		CrawledAt:       t.CrawledAt.UTC(),
	}
}

// Record converts the row back to the archive record.
func (r TranscriptRow) Record() domain.PodcastTranscript {
	return domain.PodcastTranscript{
		PodcastID:       r.PodcastID,
		Identity:        domain.Identity{Kind: domain.IdentityKind(r.IdentityKind), Value: r.IdentityValue},
		URL:             r.URL,
		Title:           r.Title,
		Transcript:      r.Transcript,
		TranscriptFound: r.TranscriptFound,
		Summary:         r.Summary,
		CrawledAt:       r.CrawledAt,
	}
}
