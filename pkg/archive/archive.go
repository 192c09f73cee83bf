// Package archive keeps a copy of every delivered episode: the transcript
// that was summarized and the summary that went out.
package archive

import (
	"context"
	"database/sql"
	"fmt"

	"podcast-digest/pkg/db"
	"podcast-digest/pkg/domain"
)

// Archive stores delivered episodes. Saving the same podcast and identity
// twice keeps the latest copy.
type Archive interface {
	Save(ctx context.Context, t *domain.PodcastTranscript) error
}

// Mongo archives into the podcast_transcripts collection.
type Mongo struct {
	client *db.Client
}

func NewMongo(client *db.Client) *Mongo {
	return &Mongo{client: client}
}

func (m *Mongo) Save(ctx context.Context, t *domain.PodcastTranscript) error {
	return m.client.SaveTranscript(ctx, t)
}

// SupabaseREST archives through the Supabase REST API.
type SupabaseREST struct {
	client *db.SupabaseClient
}

func NewSupabaseREST(client *db.SupabaseClient) *SupabaseREST {
	return &SupabaseREST{client: client}
}

func (s *SupabaseREST) Save(ctx context.Context, t *domain.PodcastTranscript) error {
	return s.client.UpsertTranscriptREST(t)
}

// SQL archives into the podcast_transcript table.
type SQL struct {
	provider db.DBProvider
}

func NewSQL(provider db.DBProvider) *SQL {
	return &SQL{provider: provider}
}

func (s *SQL) handle() (*sql.DB, error) {
	if s.provider == nil || s.provider.DB() == nil {
		return nil, fmt.Errorf("%w: archive database not connected", domain.ErrInvalidConfig)
	}
	return s.provider.DB(), nil
}

// EnsureSchema creates the archive table when it does not exist.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	conn, err := s.handle()
	if err != nil {
		return err
	}

	timeType, boolType := s.provider.Dialect().TimeType(), "BOOLEAN"
	if s.provider.Dialect() == db.SQLite {
		boolType = "INTEGER"
	}
	ddl := `
CREATE TABLE IF NOT EXISTS ` + db.TranscriptTable + ` (
  podcast_id TEXT NOT NULL,
  identity_kind TEXT NOT NULL,
  identity_value TEXT NOT NULL,
  url TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  transcript TEXT NOT NULL DEFAULT '',
  transcript_found ` + boolType + ` NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  crawled_at ` + timeType + ` NOT NULL,
  PRIMARY KEY (podcast_id, identity_kind, identity_value)
);`

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", db.TranscriptTable, err)
	}
	return nil
}

func (s *SQL) Save(ctx context.Context, t *domain.PodcastTranscript) error {
	_, err := s.SaveBatch(ctx, []domain.PodcastTranscript{*t}, true)
	return err
}

// SaveBatch writes transcripts in one transaction and returns how many rows
// were written. With overwrite false existing rows are left untouched.
func (s *SQL) SaveBatch(ctx context.Context, batch []domain.PodcastTranscript, overwrite bool) (int, error) {
	conn, err := s.handle()
	if err != nil {
		return 0, err
	}

	conflict := `DO NOTHING`
	if overwrite {
		conflict = `DO UPDATE SET
  url = excluded.url,
  title = excluded.title,
  transcript = excluded.transcript,
  transcript_found = excluded.transcript_found,
  summary = excluded.summary,
  crawled_at = excluded.crawled_at`
	}
	query := `
INSERT INTO ` + db.TranscriptTable + ` (podcast_id, identity_kind, identity_value, url, title, transcript, transcript_found, summary, crawled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (podcast_id, identity_kind, identity_value) ` + conflict

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i := range batch {
		row := db.NewTranscriptRow(&batch[i])
		if row.PodcastID == "" || row.IdentityValue == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx,
			row.PodcastID, row.IdentityKind, row.IdentityValue,
			row.URL, row.Title, row.Transcript, row.TranscriptFound, row.Summary,
			s.provider.Dialect().TimeValue(row.CrawledAt),
		)
		if err != nil {
			return 0, fmt.Errorf("insert transcript %s/%s: %w", row.PodcastID, row.IdentityValue, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// List returns archived transcripts for podcastID, newest first.
func (s *SQL) List(ctx context.Context, podcastID string, limit int) ([]domain.PodcastTranscript, error) {
	conn, err := s.handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := conn.QueryContext(ctx, `
SELECT podcast_id, identity_kind, identity_value, url, title, transcript, transcript_found, summary, crawled_at
FROM `+db.TranscriptTable+`
WHERE podcast_id = $1
ORDER BY crawled_at DESC
LIMIT $2`, podcastID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []domain.PodcastTranscript
	for rows.Next() {
		var (
			row     db.TranscriptRow
			crawled any
		)
		if err := rows.Scan(&row.PodcastID, &row.IdentityKind, &row.IdentityValue, &row.URL, &row.Title,
			&row.Transcript, &row.TranscriptFound, &row.Summary, &crawled); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		if row.CrawledAt, err = db.ScanTime(crawled); err != nil {
			return nil, fmt.Errorf("%w: transcript %s: %v", domain.ErrParseFailure, row.IdentityValue, err)
		}
		out = append(out, row.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
