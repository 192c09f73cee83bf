// Package notify delivers episode summaries and run failure digests.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

// Deliverer publishes the summary of a new episode.
type Deliverer interface {
	Deliver(ctx context.Context, ep domain.Episode, summary string) error
}

// FailureReporter publishes the failures of one run, once.
type FailureReporter interface {
	ReportFailures(ctx context.Context, failures []Failure) error
}

// Stage names where a podcast failed.
type Stage string

const (
	StageDetect    Stage = "detect"
	StageSummarize Stage = "summarize"
	StageDeliver   Stage = "deliver"
	StageRun       Stage = "run"
)

// Failure is one podcast that did not complete.
type Failure struct {
	PodcastID string
	Stage     Stage
	Err       error
}

func (f Failure) String() string {
	msg := "unknown error"
	if f.Err != nil {
		msg = strings.TrimSpace(f.Err.Error())
	}
	return fmt.Sprintf("%s (%s): %s", f.PodcastID, f.Stage, msg)
}

// FormatEpisode renders the episode message as markdown.
func FormatEpisode(ep domain.Episode, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## New episode: %s\n\n", ep.Title)
	fmt.Fprintf(&b, "- **Show:** %s\n", orDash(ep.ShowName))
	fmt.Fprintf(&b, "- **Published:** %s\n", formatDate(ep.Published))
	fmt.Fprintf(&b, "- **Guest(s):** %s\n\n", formatGuests(ep.Guests))
	b.WriteString("### Summary\n\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	if ep.URL != "" {
		fmt.Fprintf(&b, "\n[Listen to episode](%s)\n", ep.URL)
	}
	return b.String()
}

// FormatFailures renders the failure digest as markdown.
func FormatFailures(failures []Failure, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d podcast(s) failed:\n\n", len(failures))
	for _, f := range failures {
		b.WriteString("- ")
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTime: %s\n", at.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}

func formatGuests(guests []domain.Guest) string {
	if len(guests) == 0 {
		return "Not specified"
	}
	parts := make([]string, 0, len(guests))
	for _, g := range guests {
		switch {
		case g.LinkedInURL != "":
			parts = append(parts, fmt.Sprintf("[%s](%s)", g.Name, g.LinkedInURL))
		case g.Description != "":
			desc := []rune(g.Description)
			if len(desc) > 50 {
				desc = desc[:50]
			}
			parts = append(parts, fmt.Sprintf("%s (%s)", g.Name, string(desc)))
		default:
			parts = append(parts, g.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("January 2, 2006")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// LogDeliverer writes summaries and failures to the logger instead of a
// remote endpoint.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer creates a deliverer for dry runs and unconfigured setups.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logging.NewComponentLogger(logger, "notify")}
}

func (l *LogDeliverer) Deliver(ctx context.Context, ep domain.Episode, summary string) error {
	l.logger.Info("episode summary", "podcast_id", ep.PodcastID, "episode", ep.Title, "summary", summary)
	return nil
}

func (l *LogDeliverer) ReportFailures(ctx context.Context, failures []Failure) error {
	for _, f := range failures {
		l.logger.Error("podcast failed", "podcast_id", f.PodcastID, "stage", string(f.Stage), "error", f.Err)
	}
	return nil
}
