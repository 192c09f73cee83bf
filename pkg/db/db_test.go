package db

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"podcast-digest/pkg/domain"
)

func TestProjectDSN(t *testing.T) {
	// Test Case 1: project ref and escaped password
	dsn, err := projectDSN("https://abcd1234.supabase.co", "p@ss/word")
	if err != nil {
		t.Fatalf("Test Case 1: projectDSN() error = %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("Test Case 1: unparseable DSN %q: %v", dsn, err)
	}
	if u.Host != "db.abcd1234.supabase.co:5432" || u.Path != "/postgres" {
		t.Errorf("Test Case 1: host=%q path=%q", u.Host, u.Path)
	}
	if pw, _ := u.User.Password(); pw != "p@ss/word" {
		t.Errorf("Test Case 1: password = %q", pw)
	}
	if u.Query().Get("sslmode") != "require" {
		t.Errorf("Test Case 1: sslmode missing from %q", dsn)
	}

	// Test Case 2: unusable project URLs
	for _, raw := range []string{"", "https://localhost"} {
		if _, err := projectDSN(raw, "pw"); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("Test Case 2: projectDSN(%q) error = %v", raw, err)
		}
	}
}

func TestWithPoolerParams(t *testing.T) {
	got, err := withPoolerParams("postgresql://u:p@host:5432/db?sslmode=require&statement_cache_capacity=16")
	if err != nil {
		t.Fatalf("withPoolerParams() error = %v", err)
	}
	q, _ := url.Parse(got)
	params := q.Query()
	if params.Get("statement_cache_capacity") != "16" {
		t.Errorf("existing parameter overwritten: %q", got)
	}
	if params.Get("default_query_exec_mode") != "simple_protocol" || params.Get("sslmode") != "require" {
		t.Errorf("unexpected parameters: %q", got)
	}
}

func TestSupabaseClient_RequiresSomething(t *testing.T) {
	err := NewSupabaseClient(SupabaseConfig{}).Connect(context.Background())
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("Connect() error = %v, want ErrInvalidConfig", err)
	}
}

func TestPostgresClient_RequiresDSN(t *testing.T) {
	err := NewPostgresClient(PostgresConfig{}).Connect(context.Background())
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("Connect() error = %v, want ErrInvalidConfig", err)
	}
}

func TestSQLiteClient_TimeRoundTrip(t *testing.T) {
	client := NewSQLiteClient(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	d := client.Dialect()
	if d != SQLite || d.TimeType() != "TEXT" {
		t.Fatalf("unexpected dialect %v / %s", d, d.TimeType())
	}

	if _, err := client.DB().Exec(`CREATE TABLE t (at TEXT)`); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 1, 8, 30, 0, 123, time.FixedZone("CET", 3600))
	if _, err := client.DB().Exec(`INSERT INTO t (at) VALUES ($1)`, d.TimeValue(want)); err != nil {
		t.Fatal(err)
	}

	var raw any
	if err := client.DB().QueryRow(`SELECT at FROM t`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	got, err := ScanTime(raw)
	if err != nil {
		t.Fatalf("ScanTime() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("ScanTime() = %v, want %v", got, want)
	}

	if _, err := ScanTime(42); err == nil {
		t.Error("expected an error for an int column")
	}
}
