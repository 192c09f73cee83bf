package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"podcast-digest/pkg/content"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/guests"
	"podcast-digest/pkg/logging"
)

// minTranscriptChars rejects archive files too short to be a real transcript.
const minTranscriptChars = 100

var trailingParens = regexp.MustCompile(`\s*\([^)]+\)\s*$`)

// ArchiveSource treats a folder of transcript files as the episode feed:
// the newest file is the latest episode and already holds its transcript.
type ArchiveSource struct {
	lister Lister
	// FilenamePrefixes are stripped before a guest name is read from a file name.
	FilenamePrefixes []string
	// Enricher, when set, fills in episode details from the show page.
	Enricher Enricher
	logger   *slog.Logger
}

// NewArchiveSource creates an archive source over lister.
func NewArchiveSource(lister Lister, prefixes []string, logger *slog.Logger) *ArchiveSource {
	return &ArchiveSource{
		lister:           lister,
		FilenamePrefixes: prefixes,
		logger:           logging.NewComponentLogger(logger, "archive"),
	}
}

// DetectLatest picks the most recently modified file and returns it as an
// episode together with its content. The file name is the identity.
func (s *ArchiveSource) DetectLatest(ctx context.Context, cfg domain.PodcastConfig) (Detection, error) {
	files, err := s.lister.List(ctx, cfg.ArchiveURL)
	if err != nil {
		return Detection{}, err
	}

	latest, ok := LatestFile(files)
	if !ok {
		return Detection{}, fmt.Errorf("%w: archive %s lists no transcript files", domain.ErrParseFailure, cfg.ArchiveURL)
	}
	s.logger.Debug("newest archive file", "podcast_id", cfg.ID, "file", latest.Name, "modified", latest.Modified)

	text, err := s.readTranscript(ctx, latest)
	if err != nil {
		return Detection{}, err
	}

	guest := guests.NameFromFilename(latest.Name, s.FilenamePrefixes)
	ep := domain.Episode{
		PodcastID: cfg.ID,
		ShowName:  cfg.DisplayName(),
		Title:     archiveTitle(cfg.DisplayName(), guest),
		Published: latest.Modified,
		URL:       cfg.Website,
		Identity:  domain.NormalizeIdentity(latest.Name, domain.ArchiveIdentity),
	}
	if guest != "" {
		ep.Guests = []domain.Guest{{Name: guest}}
	}
	ep = s.enrich(ctx, cfg, ep)

	return Detection{Episode: ep, Bundled: bundled(domain.TranscriptText(text))}, nil
}

// enrich returns ep unchanged when there is no show page or enrichment fails.
func (s *ArchiveSource) enrich(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) domain.Episode {
	if s.Enricher == nil || cfg.ShowPageURL == "" {
		return ep
	}
	enriched, err := s.Enricher.Enrich(ctx, cfg, ep)
	if err != nil {
		s.logger.Warn("show page enrichment failed, keeping archive details", "podcast_id", cfg.ID, "error", err)
		return ep
	}
	enriched.Identity = ep.Identity
	return enriched
}

// AcquireTranscript finds the archive file that best matches the episode's
// guest. Used for podcasts detected from a feed whose transcripts are archived.
func (s *ArchiveSource) AcquireTranscript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error) {
	guest := guestForMatching(ep)
	if guest == "" {
		s.logger.Warn("no guest name to match archive files against", "podcast_id", cfg.ID, "title", ep.Title)
		return domain.TranscriptNotFound(), nil
	}

	files, err := s.lister.List(ctx, cfg.ArchiveURL)
	if err != nil {
		return domain.TranscriptNotFound(), err
	}

	best, score := ArchiveFile{}, 0
	for _, f := range files {
		if sc := guests.MatchScore(guest, f.Name); sc > score {
			best, score = f, sc
		}
	}
	if score == 0 {
		s.logger.Info("no archive file matches guest", "podcast_id", cfg.ID, "guest", guest)
		return domain.TranscriptNotFound(), nil
	}
	s.logger.Info("matched archive file", "podcast_id", cfg.ID, "file", best.Name, "score", score)

	text, err := s.readTranscript(ctx, best)
	if err != nil {
		return domain.TranscriptNotFound(), err
	}
	return domain.TranscriptText(text), nil
}

func (s *ArchiveSource) readTranscript(ctx context.Context, file ArchiveFile) (string, error) {
	data, err := s.lister.Read(ctx, file)
	if err != nil {
		return "", err
	}

	text, err := content.DocumentText(data, file.Name, "")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrParseFailure, file.Name, err)
	}
	text = strings.TrimSpace(text)
	if len(text) < minTranscriptChars {
		return "", fmt.Errorf("%w: %s holds %d chars, too short for a transcript", domain.ErrParseFailure, file.Name, len(text))
	}
	return text, nil
}

// LatestFile returns the most recently modified file. Equal times go to the
// lexically greater name; undated files lose to dated ones and, among
// themselves, keep listing order.
func LatestFile(files []ArchiveFile) (ArchiveFile, bool) {
	if len(files) == 0 {
		return ArchiveFile{}, false
	}

	best := files[0]
	for _, f := range files[1:] {
		if newer(f, best) {
			best = f
		}
	}
	return best, true
}

func newer(a, b ArchiveFile) bool {
	switch {
	case a.Modified.IsZero():
		return false
	case b.Modified.IsZero():
		return true
	case a.Modified.Equal(b.Modified):
		return a.Name > b.Name
	default:
		return a.Modified.After(b.Modified)
	}
}

func archiveTitle(show, guest string) string {
	if guest == "" {
		return show
	}
	return show + " | " + guest
}

// guestForMatching prefers an extracted guest, then the last "|" part of the title.
func guestForMatching(ep domain.Episode) string {
	if name := ep.PrimaryGuest(); name != "" {
		return name
	}
	if !strings.Contains(ep.Title, "|") {
		return ""
	}
	parts := strings.Split(ep.Title, "|")
	last := trailingParens.ReplaceAllString(strings.TrimSpace(parts[len(parts)-1]), "")
	if len(last) <= 2 {
		return ""
	}
	return last
}
