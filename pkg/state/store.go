// Package state persists the last delivered episode per podcast.
//
// A Store is loaded once per run, updated in memory as podcasts complete and
// written back once with Flush. Backends only see whole snapshots.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

// Backend loads and saves the full set of tracking records.
// Save replaces the stored set: records missing from it are removed.
type Backend interface {
	Load(ctx context.Context) ([]domain.TrackingRecord, error)
	Save(ctx context.Context, records []domain.TrackingRecord) error
}

// Store is the in-memory tracking state for one run. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	records map[string]domain.TrackingRecord
	dirty   bool
	logger  *slog.Logger
}

// Open loads the current state from backend.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	logger = logging.NewComponentLogger(logger, "state")

	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	records := make(map[string]domain.TrackingRecord, len(loaded))
	for _, rec := range loaded {
		if rec.PodcastID == "" {
			continue
		}
		records[rec.PodcastID] = rec
	}
	logger.Debug("state loaded", "podcasts", len(records))

	return &Store{backend: backend, records: records, logger: logger}, nil
}

// Get returns the record for podcastID.
func (s *Store) Get(podcastID string) (domain.TrackingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[podcastID]
	return rec, ok
}

// LastIdentity returns the identity of the last delivered episode, or the
// zero identity for a podcast that was never delivered.
func (s *Store) LastIdentity(podcastID string) domain.Identity {
	rec, _ := s.Get(podcastID)
	return rec.LastIdentity
}

// Record replaces the record for rec.PodcastID.
func (s *Store) Record(rec domain.TrackingRecord) error {
	if rec.PodcastID == "" {
		return fmt.Errorf("%w: tracking record without podcast id", domain.ErrInvalidConfig)
	}
	if rec.LastIdentity.IsZero() {
		return fmt.Errorf("%w: tracking record for %q without identity", domain.ErrInvalidConfig, rec.PodcastID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.PodcastID] = rec
	s.dirty = true
	return nil
}

// Clear forgets podcastID, or every podcast when podcastID is empty.
// It reports whether anything was removed.
func (s *Store) Clear(podcastID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if podcastID == "" {
		if len(s.records) == 0 {
			return false
		}
		s.records = make(map[string]domain.TrackingRecord)
		s.dirty = true
		return true
	}
	if _, ok := s.records[podcastID]; !ok {
		return false
	}
	delete(s.records, podcastID)
	s.dirty = true
	return true
}

// Records returns a snapshot sorted by podcast id.
func (s *Store) Records() []domain.TrackingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TrackingRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PodcastID < out[j].PodcastID })
	return out
}

// Flush writes the state back when it changed since Open or the last Flush.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	records := make([]domain.TrackingRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PodcastID < records[j].PodcastID })

	if err := s.backend.Save(ctx, records); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.dirty = false
	s.logger.Debug("state saved", "podcasts", len(records))
	return nil
}
