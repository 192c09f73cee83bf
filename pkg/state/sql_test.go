package state

import (
	"context"
	"path/filepath"
	"testing"

	"podcast-digest/pkg/db"
	"podcast-digest/pkg/domain"
)

func openSQLite(t *testing.T) *db.SQLiteClient {
	t.Helper()
	client := db.NewSQLiteClient(filepath.Join(t.TempDir(), "state.db"))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSQLBackend_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewSQLBackend(openSQLite(t))

	// Test Case 1: empty table
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Test Case 1: Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Test Case 1: Load() = %d records", len(got))
	}

	// Test Case 2: insert
	if err := b.Save(ctx, []domain.TrackingRecord{record("a", "1"), record("b", "2")}); err != nil {
		t.Fatalf("Test Case 2: Save() error = %v", err)
	}

	// Test Case 3: update a and drop b
	updated := record("a", "3")
	if err := b.Save(ctx, []domain.TrackingRecord{updated}); err != nil {
		t.Fatalf("Test Case 3: Save() error = %v", err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("Test Case 3: Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Test Case 3: Load() = %d records, want 1", len(got))
	}
	if got[0].LastIdentity != updated.LastIdentity || got[0].LastTitle != updated.LastTitle {
		t.Errorf("Test Case 3: got %+v, want %+v", got[0], updated)
	}
	if !got[0].LastChecked.Equal(updated.LastChecked) {
		t.Errorf("Test Case 3: LastChecked = %v, want %v", got[0].LastChecked, updated.LastChecked)
	}

	// Test Case 4: empty save clears the table
	if err := b.Save(ctx, nil); err != nil {
		t.Fatalf("Test Case 4: Save() error = %v", err)
	}
	got, _ = b.Load(ctx)
	if len(got) != 0 {
		t.Errorf("Test Case 4: Load() = %d records, want 0", len(got))
	}
}

func TestSQLBackend_NotConnected(t *testing.T) {
	b := NewSQLBackend(db.NewSQLiteClient("unused.db"))
	if _, err := b.Load(context.Background()); err == nil {
		t.Error("expected an error for an unconnected client")
	}
}
