package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
	"podcast-digest/pkg/retry"
	"podcast-digest/pkg/sources"
	"podcast-digest/pkg/summary"
)

// failingStrategy fails every call with a retryable error.
type failingStrategy struct {
	mu              sync.Mutex
	transcriptCalls int
}

func (f *failingStrategy) DetectLatest(ctx context.Context, cfg domain.PodcastConfig) (sources.Detection, error) {
	return sources.Detection{}, fmt.Errorf("%w: show page down", domain.ErrSourceUnavailable)
}

func (f *failingStrategy) AcquireTranscript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcriptCalls++
	return domain.TranscriptNotFound(), fmt.Errorf("%w: episode page down", domain.ErrSourceUnavailable)
}

// recordingSummarizer keeps the transcript text it was asked to summarize.
type recordingSummarizer struct {
	got   []string
	calls int
}

var _ summary.Summarizer = (*recordingSummarizer)(nil)

func (r *recordingSummarizer) Summarize(ctx context.Context, ep domain.Episode, t domain.Transcript) (string, error) {
	r.calls++
	r.got = append(r.got, t.String())
	return "summary", nil
}

type mockAudio struct {
	data  []byte
	errs  []error
	calls int
}

func (m *mockAudio) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, "", m.errs[i]
	}
	return m.data, "audio/mpeg", nil
}

type mockTranscriber struct {
	mu    sync.Mutex
	names []string
	sizes []int
	// failOn makes the named segment fail every time.
	failOn string
	// flaky makes every segment fail once before succeeding.
	flaky map[string]bool
}

func (m *mockTranscriber) Transcribe(ctx context.Context, data []byte, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.sizes = append(m.sizes, len(data))
	if name == m.failOn {
		return "", fmt.Errorf("%w: upstream 502", domain.ErrSourceUnavailable)
	}
	if m.flaky != nil && !m.flaky[name] {
		m.flaky[name] = true
		return "", fmt.Errorf("%w: rate limited", domain.ErrSourceUnavailable)
	}
	return "text-" + name, nil
}

func noSleepRetry() *retry.Executor {
	return &retry.Executor{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		Logger:      logging.NewNop(),
	}
}

func scrapeConfig() domain.PodcastConfig {
	return domain.PodcastConfig{
		ID:               "sub-club",
		Name:             "Sub Club",
		Detection:        domain.DetectFeed,
		TranscriptMethod: domain.TranscriptScrape,
		FeedURL:          "https://feeds.example.com/sub-club",
		ShowPageURL:      "https://podcasts.example.com/sub-club",
	}
}

func TestAcquire_ScrapeFailureYieldsNotFound(t *testing.T) {
	scrape := &failingStrategy{}
	rt := noSleepRetry()
	dispatcher := &sources.Dispatcher{Scrape: scrape, Retry: rt, Logger: logging.NewNop()}
	acq := &Acquirer{Router: dispatcher, Retry: rt, Logger: logging.NewNop()}

	ep := domain.Episode{
		PodcastID:   "sub-club",
		Title:       "Pricing experiments",
		Description: "In this episode we talk about pricing experiments in depth.",
	}
	got := acq.Acquire(context.Background(), scrapeConfig(), sources.Detection{Episode: ep})

	if got.Found() {
		t.Fatalf("Acquire() found a transcript: %q", got.Text())
	}
	if scrape.transcriptCalls != 3 {
		t.Errorf("scrape attempts = %d, want 3", scrape.transcriptCalls)
	}

	s := &recordingSummarizer{}
	if _, err := s.Summarize(context.Background(), ep, got); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(s.got) != 1 || s.got[0] != domain.TranscriptNotFoundText {
		t.Errorf("summarizer received %q, want %q", s.got, domain.TranscriptNotFoundText)
	}
	if strings.Contains(s.got[0], ep.Description) {
		t.Error("description was substituted for the missing transcript")
	}
}

func TestAcquire_Bundled(t *testing.T) {
	router := &countingRouter{}
	acq := &Acquirer{Router: router, Logger: logging.NewNop()}
	bundled := domain.TranscriptText("full archived transcript")

	cfg := scrapeConfig()
	cfg.TranscriptMethod = domain.TranscriptArchive
	got := acq.Acquire(context.Background(), cfg, sources.Detection{Bundled: &bundled})

	if got.Text() != "full archived transcript" {
		t.Errorf("Acquire() = %q", got.Text())
	}
	if router.calls != 0 {
		t.Errorf("router called %d times for a bundled transcript", router.calls)
	}
}

type countingRouter struct {
	result domain.Transcript
	err    error
	calls  int
}

func (c *countingRouter) Transcript(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Transcript, error) {
	c.calls++
	return c.result, c.err
}

func TestAcquire_Router(t *testing.T) {
	// Test Case 1: found transcript is passed through
	router := &countingRouter{result: domain.TranscriptText("scraped words")}
	acq := &Acquirer{Router: router, Logger: logging.NewNop()}
	got := acq.Acquire(context.Background(), scrapeConfig(), sources.Detection{})
	if got.Text() != "scraped words" {
		t.Errorf("Test Case 1: Acquire() = %q", got.Text())
	}

	// Test Case 2: a missing transcript stays missing
	router = &countingRouter{result: domain.TranscriptNotFound()}
	acq.Router = router
	got = acq.Acquire(context.Background(), scrapeConfig(), sources.Detection{})
	if got.Found() {
		t.Error("Test Case 2: expected NotFound")
	}

	// Test Case 3: invalid config surfaces as NotFound
	cfg := scrapeConfig()
	cfg.TranscriptMethod = "carrier-pigeon"
	router = &countingRouter{}
	acq.Router = router
	got = acq.Acquire(context.Background(), cfg, sources.Detection{})
	if got.Found() || router.calls != 0 {
		t.Errorf("Test Case 3: found=%v calls=%d", got.Found(), router.calls)
	}
}

func transcribeConfig() domain.PodcastConfig {
	return domain.PodcastConfig{
		ID:               "20vc",
		Name:             "The Twenty Minute VC",
		Detection:        domain.DetectFeed,
		TranscriptMethod: domain.TranscriptTranscribe,
		FeedURL:          "https://feeds.example.com/20vc",
	}
}

func TestAcquire_TranscribeJoinsSegmentsInOrder(t *testing.T) {
	audioData := make([]byte, 2500)
	fetcher := &mockAudio{data: audioData, errs: []error{fmt.Errorf("%w: reset", domain.ErrSourceUnavailable)}}
	tr := &mockTranscriber{flaky: map[string]bool{}}
	acq := &Acquirer{
		Transcriber: tr,
		Audio:       fetcher,
		Retry:       noSleepRetry(),
		ChunkBytes:  1000,
		Logger:      logging.NewNop(),
	}

	ep := domain.Episode{Title: "Episode 1", AudioURL: "https://cdn.example.com/ep1.mp3"}
	got := acq.Acquire(context.Background(), transcribeConfig(), sources.Detection{Episode: ep})

	want := "text-20vc-000.mp3 text-20vc-001.mp3 text-20vc-002.mp3"
	if got.Text() != want {
		t.Errorf("Acquire() = %q, want %q", got.Text(), want)
	}
	if fetcher.calls != 2 {
		t.Errorf("audio fetches = %d, want 2", fetcher.calls)
	}
	total := 0
	for _, n := range tr.sizes {
		if n > 1000 {
			t.Errorf("segment of %d bytes exceeds the limit", n)
		}
	}
	// every segment fails once, so successful uploads sit at odd positions
	for i := 1; i < len(tr.sizes); i += 2 {
		total += tr.sizes[i]
	}
	if total != len(audioData) {
		t.Errorf("transcribed bytes = %d, want %d", total, len(audioData))
	}
}

func TestAcquire_TranscribeFailures(t *testing.T) {
	ep := domain.Episode{Title: "Episode 1", AudioURL: "https://cdn.example.com/ep1.mp3"}

	// Test Case 1: no audio enclosure
	acq := &Acquirer{Transcriber: &mockTranscriber{}, Audio: &mockAudio{}, Retry: noSleepRetry(), Logger: logging.NewNop()}
	noAudio := ep
	noAudio.AudioURL = ""
	if got := acq.Acquire(context.Background(), transcribeConfig(), sources.Detection{Episode: noAudio}); got.Found() {
		t.Error("Test Case 1: expected NotFound without an audio URL")
	}

	// Test Case 2: download never succeeds
	unavailable := fmt.Errorf("%w: cdn down", domain.ErrSourceUnavailable)
	fetcher := &mockAudio{errs: []error{unavailable, unavailable, unavailable}}
	acq = &Acquirer{Transcriber: &mockTranscriber{}, Audio: fetcher, Retry: noSleepRetry(), Logger: logging.NewNop()}
	if got := acq.Acquire(context.Background(), transcribeConfig(), sources.Detection{Episode: ep}); got.Found() {
		t.Error("Test Case 2: expected NotFound when the download fails")
	}
	if fetcher.calls != 3 {
		t.Errorf("Test Case 2: fetch attempts = %d, want 3", fetcher.calls)
	}

	// Test Case 3: one segment fails, no partial transcript
	tr := &mockTranscriber{failOn: "20vc-001.mp3"}
	acq = &Acquirer{
		Transcriber: tr,
		Audio:       &mockAudio{data: make([]byte, 2500)},
		Retry:       noSleepRetry(),
		ChunkBytes:  1000,
		Logger:      logging.NewNop(),
	}
	if got := acq.Acquire(context.Background(), transcribeConfig(), sources.Detection{Episode: ep}); got.Found() {
		t.Errorf("Test Case 3: expected NotFound, got %q", got.Text())
	}
	for _, name := range tr.names {
		if name == "20vc-002.mp3" {
			t.Error("Test Case 3: transcription continued after a failed segment")
		}
	}

	// Test Case 4: transcription not configured
	acq = &Acquirer{Logger: logging.NewNop()}
	if got := acq.Acquire(context.Background(), transcribeConfig(), sources.Detection{Episode: ep}); got.Found() {
		t.Error("Test Case 4: expected NotFound")
	}
}

func TestAcquire_TruncatesLongTranscripts(t *testing.T) {
	long := strings.Repeat("word ", 100)
	bundled := domain.TranscriptText(long)
	acq := &Acquirer{MaxChars: 120, Logger: logging.NewNop()}

	got := acq.Acquire(context.Background(), scrapeConfig(), sources.Detection{Bundled: &bundled})
	if n := utf8.RuneCountInString(got.Text()); n > 120 {
		t.Errorf("truncated length = %d, want <= 120", n)
	}
	if !strings.HasSuffix(got.Text(), truncationSuffix) {
		t.Errorf("missing truncation marker: %q", got.Text())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		want    string
		wantCut bool
	}{
		{"short", "hello world", 50, "hello world", false},
		{"exact", "hello", 5, "hello", false},
		{"disabled", "hello world", 0, "hello world", false},
		{"word boundary", "alpha beta gamma delta epsilon zeta eta theta iota kappa", 40, "alpha beta... [transcript truncated]", true},
		{"tiny budget", "alpha beta gamma delta epsilon", 10, "... [trans", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := Truncate(tt.text, tt.max)
			if got != tt.want || cut != tt.wantCut {
				t.Errorf("Truncate() = (%q, %v), want (%q, %v)", got, cut, tt.want, tt.wantCut)
			}
			if tt.max > 0 && utf8.RuneCountInString(got) > tt.max {
				t.Errorf("Truncate() length %d exceeds %d", utf8.RuneCountInString(got), tt.max)
			}
		})
	}
}

func TestTruncate_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("é", 200)
	got, cut := Truncate(text, 100)
	if !cut {
		t.Fatal("expected truncation")
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Errorf("length = %d runes, want 100", n)
	}
}
