// Package digest runs one pass over the configured podcasts: detect new
// episodes, acquire transcripts, summarize, deliver and record.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"podcast-digest/pkg/archive"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
	"podcast-digest/pkg/notify"
	"podcast-digest/pkg/retry"
	"podcast-digest/pkg/sources"
	"podcast-digest/pkg/state"
	"podcast-digest/pkg/summary"
)

// DefaultFlushTimeout bounds the state write that follows a run, including
// runs that ended because their deadline passed.
const DefaultFlushTimeout = 30 * time.Second

// Checker reports whether a podcast has a new episode. *sources.Dispatcher implements it.
type Checker interface {
	Check(ctx context.Context, cfg domain.PodcastConfig, lastSeen domain.Identity) sources.Verdict
}

// TranscriptAcquirer resolves the transcript of a new episode. *transcript.Acquirer implements it.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, cfg domain.PodcastConfig, det sources.Detection) domain.Transcript
}

// Runner wires the stages of a run. Archive and Reporter are optional.
type Runner struct {
	Checker    Checker
	Acquirer   TranscriptAcquirer
	Summarizer summary.Summarizer
	Deliverer  notify.Deliverer
	Archive    archive.Archive
	Reporter   notify.FailureReporter
	Store      *state.Store
	Retry      *retry.Executor
	Logger     *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Options controls one run.
type Options struct {
	Workers int
	// Timeout bounds the whole run. Zero means no deadline.
	Timeout time.Duration
	// Force treats every podcast as never delivered.
	Force bool
	// CheckOnly stops after detection and leaves state untouched.
	CheckOnly    bool
	FlushTimeout time.Duration
}

// Outcome is what happened to one podcast.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeNew       Outcome = "new"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// PodcastResult is the per-podcast line of a Report.
type PodcastResult struct {
	PodcastID       string
	Outcome         Outcome
	Episode         domain.Episode
	TranscriptFound bool
	Failure         *notify.Failure
}

// Report summarizes a run.
type Report struct {
	Results  []PodcastResult
	Failures []notify.Failure
	Duration time.Duration
}

// Delivered counts podcasts whose summary went out.
func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeDelivered {
			n++
		}
	}
	return n
}

// Run processes podcasts concurrently. A failing podcast never stops the
// others. State is flushed once at the end, also when the run timed out, so
// podcasts that completed are not delivered again. The returned error is
// only set when the state could not be saved.
func (r *Runner) Run(ctx context.Context, podcasts []domain.PodcastConfig, opts Options) (Report, error) {
	start := r.now()
	logger := logging.NewComponentLogger(r.Logger, "runner")

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, max(len(podcasts), 1))

	jobs := make(chan domain.PodcastConfig, len(podcasts))
	for _, p := range podcasts {
		jobs <- p
	}
	close(jobs)

	results := make(chan PodcastResult, len(podcasts))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for p := range jobs {
				if err := runCtx.Err(); err != nil {
					results <- failed(p.ID, notify.StageRun, fmt.Errorf("not started: %w", err))
					continue
				}
				res := r.process(runCtx, p, opts)
				logger.Debug("podcast processed", "worker", workerID, "podcast_id", p.ID, "outcome", string(res.Outcome))
				results <- res
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var report Report
	for res := range results {
		report.Results = append(report.Results, res)
		if res.Failure != nil {
			report.Failures = append(report.Failures, *res.Failure)
		}
	}
	sort.Slice(report.Results, func(i, j int) bool { return report.Results[i].PodcastID < report.Results[j].PodcastID })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].PodcastID < report.Failures[j].PodcastID })

	// The run context may already be done; finishing up must not depend on it.
	flushTimeout := opts.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	var flushErr error
	if !opts.CheckOnly && r.Store != nil {
		if err := r.Store.Flush(finishCtx); err != nil {
			flushErr = err
			logger.Error("failed to save state", "error", err)
		}
	}

	if len(report.Failures) > 0 && r.Reporter != nil {
		if err := r.Reporter.ReportFailures(finishCtx, report.Failures); err != nil {
			logger.Warn("failed to report failures", "error", err)
		}
	}

	report.Duration = r.now().Sub(start)
	logger.Info("run complete",
		"podcasts", len(podcasts),
		"delivered", report.Delivered(),
		"failed", len(report.Failures),
		"duration", report.Duration.Round(time.Millisecond).String(),
	)
	return report, flushErr
}

func (r *Runner) process(ctx context.Context, p domain.PodcastConfig, opts Options) PodcastResult {
	logger := logging.NewComponentLogger(r.Logger, "runner").With("podcast_id", p.ID)

	lastSeen := domain.Identity{}
	if !opts.Force && r.Store != nil {
		lastSeen = r.Store.LastIdentity(p.ID)
	}

	verdict := r.Checker.Check(ctx, p, lastSeen)
	switch verdict.Status {
	case sources.Unchanged:
		return PodcastResult{PodcastID: p.ID, Outcome: OutcomeUnchanged, Episode: verdict.Detection.Episode}
	case sources.DetectionFailed:
		return failed(p.ID, notify.StageDetect, verdict.Err)
	}

	ep := verdict.Detection.Episode
	if opts.CheckOnly {
		return PodcastResult{PodcastID: p.ID, Outcome: OutcomeNew, Episode: ep}
	}

	t := r.Acquirer.Acquire(ctx, p, verdict.Detection)

	text, err := retry.Run(ctx, r.executor(), "summarize "+p.ID, func(ctx context.Context) (string, error) {
		return r.Summarizer.Summarize(ctx, ep, t)
	})
	if err != nil {
		return withEpisode(failed(p.ID, notify.StageSummarize, err), ep)
	}

	err = r.executor().Do(ctx, "deliver "+p.ID, func(ctx context.Context) error {
		return r.Deliverer.Deliver(ctx, ep, text)
	})
	if err != nil {
		return withEpisode(failed(p.ID, notify.StageDeliver, err), ep)
	}

	now := r.now()
	if r.Archive != nil {
		if err := r.Archive.Save(ctx, domain.NewPodcastTranscript(ep, t, text, now)); err != nil {
			logger.Warn("failed to archive transcript", "error", err)
		}
	}

	if r.Store != nil {
		rec := domain.TrackingRecord{PodcastID: p.ID, LastIdentity: ep.Identity, LastTitle: ep.Title, LastChecked: now}
		if err := r.Store.Record(rec); err != nil {
			return withEpisode(failed(p.ID, notify.StageRun, err), ep)
		}
	}

	logger.Info("episode delivered", "episode", ep.Title, "transcript_found", t.Found())
	return PodcastResult{PodcastID: p.ID, Outcome: OutcomeDelivered, Episode: ep, TranscriptFound: t.Found()}
}

func failed(id string, stage notify.Stage, err error) PodcastResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	return PodcastResult{
		PodcastID: id,
		Outcome:   OutcomeFailed,
		Failure:   &notify.Failure{PodcastID: id, Stage: stage, Err: err},
	}
}

func withEpisode(res PodcastResult, ep domain.Episode) PodcastResult {
	res.Episode = ep
	return res
}

func (r *Runner) executor() *retry.Executor {
	if r.Retry == nil {
		return &retry.Executor{Logger: r.Logger}
	}
	return r.Retry
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
