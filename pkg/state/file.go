package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"podcast-digest/pkg/domain"
)

const fileFormatVersion = 1

type fileFormat struct {
	Version int                     `json:"version"`
	Records []domain.TrackingRecord `json:"records"`
}

// FileBackend stores state as a JSON document. Writes go to a temporary file
// in the same directory which is then renamed over the target, so a crash
// leaves either the old or the new state on disk.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Load reads the state file. A missing file is an empty state; a file that
// cannot be decoded is domain.ErrParseFailure.
func (b *FileBackend) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: state file %s: %v", domain.ErrParseFailure, b.Path, err)
	}
	if doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("%w: state file %s: unsupported version %d", domain.ErrParseFailure, b.Path, doc.Version)
	}
	return doc.Records, nil
}

// Save atomically replaces the state file.
func (b *FileBackend) Save(ctx context.Context, records []domain.TrackingRecord) error {
	if records == nil {
		records = []domain.TrackingRecord{}
	}
	data, err := json.MarshalIndent(fileFormat{Version: fileFormatVersion, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	committed = true

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open state directory: %w", err)
	}
	defer d.Close()
	// Some filesystems refuse to fsync directories; the rename already happened.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync state directory: %w", err)
	}
	return nil
}
