// Package replication copies the transcript archive from MongoDB into a SQL
// database, for deployments that move from one archive backend to another.
package replication

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

// Source lists archived transcripts. *db.Client implements it.
type Source interface {
	GetAllTranscripts(ctx context.Context) ([]domain.PodcastTranscript, error)
}

// Target stores transcripts in batches. *archive.SQL implements it.
type Target interface {
	EnsureSchema(ctx context.Context) error
	SaveBatch(ctx context.Context, batch []domain.PodcastTranscript, overwrite bool) (int, error)
}

// Config wires the replication dependencies.
type Config struct {
	Source    Source
	Target    Target
	BatchSize int
	Workers   int
	Logger    *slog.Logger
}

// Replicator copies every archived transcript from Source to Target.
type Replicator struct {
	source    Source
	target    Target
	batchSize int
	workers   int
	logger    *slog.Logger
}

// Stats summarizes a replication pass.
type Stats struct {
	Processed int
	Inserted  int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: replication source is required", domain.ErrInvalidConfig)
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("%w: replication target is required", domain.ErrInvalidConfig)
	}
	r := &Replicator{
		source:    cfg.Source,
		target:    cfg.Target,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		logger:    logging.NewComponentLogger(cfg.Logger, "replication"),
	}
	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.workers <= 0 {
		r.workers = 5
	}
	return r, nil
}

// Replicate copies transcripts that the target does not have yet. Existing
// rows are never overwritten.
func (r *Replicator) Replicate(ctx context.Context) (Stats, error) {
	if err := r.target.EnsureSchema(ctx); err != nil {
		return Stats{}, err
	}

	transcripts, err := r.source.GetAllTranscripts(ctx)
	if err != nil {
		return Stats{}, err
	}
	r.logger.Info("loaded transcripts from mongo", "count", len(transcripts), "batch_size", r.batchSize)

	stats, err := r.processBatches(ctx, transcripts)
	if err != nil {
		return stats, err
	}

	r.logger.Info("replication complete", "processed", stats.Processed, "inserted", stats.Inserted)
	return stats, nil
}

type batchJob struct {
	batch []domain.PodcastTranscript
	start int
	end   int
}

type batchResult struct {
	processed int
	inserted  int
	err       error
}

// processBatches fans batches out to the workers and stops at the first error.
func (r *Replicator) processBatches(ctx context.Context, transcripts []domain.PodcastTranscript) (Stats, error) {
	numBatches := (len(transcripts) + r.batchSize - 1) / r.batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(transcripts); start += r.batchSize {
		end := min(start+r.batchSize, len(transcripts))
		jobs <- batchJob{batch: transcripts[start:end], start: start, end: end}
	}
	close(jobs)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- batchResult{err: ctx.Err()}
					continue
				}
				inserted, err := r.target.SaveBatch(ctx, job.batch, false)
				if err != nil {
					err = fmt.Errorf("insert batch [%d:%d]: %w", job.start, job.end, err)
				}
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		stats    Stats
		firstErr error
	)
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		stats.Processed += result.processed
		stats.Inserted += result.inserted
		r.logger.Debug("batch replicated", "processed", stats.Processed, "total", len(transcripts), "inserted", stats.Inserted)
	}
	return stats, firstErr
}
