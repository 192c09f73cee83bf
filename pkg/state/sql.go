package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"podcast-digest/pkg/db"
	"podcast-digest/pkg/domain"
)

const trackingTable = "podcast_tracking"

// SQLBackend stores state in the podcast_tracking table of a Postgres or
// SQLite database.
type SQLBackend struct {
	provider db.DBProvider
}

// NewSQLBackend wraps a connected client.
func NewSQLBackend(provider db.DBProvider) *SQLBackend {
	return &SQLBackend{provider: provider}
}

func (b *SQLBackend) handle() (*sql.DB, error) {
	if b.provider == nil || b.provider.DB() == nil {
		return nil, fmt.Errorf("%w: state database not connected", domain.ErrInvalidConfig)
	}
	return b.provider.DB(), nil
}

// EnsureSchema creates the tracking table when it does not exist.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	conn, err := b.handle()
	if err != nil {
		return err
	}

	timeType := b.provider.Dialect().TimeType()
	ddl := `
CREATE TABLE IF NOT EXISTS ` + trackingTable + ` (
  podcast_id TEXT PRIMARY KEY,
  identity_kind TEXT NOT NULL,
  identity_value TEXT NOT NULL,
  last_title TEXT NOT NULL DEFAULT '',
  last_checked ` + timeType + ` NOT NULL
);`

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", trackingTable, err)
	}
	return nil
}

func (b *SQLBackend) Load(ctx context.Context) ([]domain.TrackingRecord, error) {
	conn, err := b.handle()
	if err != nil {
		return nil, err
	}
	if err := b.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT podcast_id, identity_kind, identity_value, last_title, last_checked FROM `+trackingTable)
	if err != nil {
		return nil, errors.Join(domain.ErrSourceUnavailable, fmt.Errorf("query tracking records: %w", err))
	}
	defer rows.Close()

	var records []domain.TrackingRecord
	for rows.Next() {
		var (
			rec     domain.TrackingRecord
			kind    string
			checked any
		)
		if err := rows.Scan(&rec.PodcastID, &kind, &rec.LastIdentity.Value, &rec.LastTitle, &checked); err != nil {
			return nil, fmt.Errorf("scan tracking record: %w", err)
		}
		rec.LastIdentity.Kind = domain.IdentityKind(kind)
		if rec.LastChecked, err = db.ScanTime(checked); err != nil {
			return nil, fmt.Errorf("%w: tracking record %q: %v", domain.ErrParseFailure, rec.PodcastID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// Save upserts every record and deletes rows for podcasts no longer tracked,
// all in one transaction.
func (b *SQLBackend) Save(ctx context.Context, records []domain.TrackingRecord) error {
	conn, err := b.handle()
	if err != nil {
		return err
	}
	if err := b.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := b.upsert(ctx, tx, records); err != nil {
		return err
	}
	if err := b.deleteOthers(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *SQLBackend) upsert(ctx context.Context, tx *sql.Tx, records []domain.TrackingRecord) error {
	const upsertQuery = `
INSERT INTO ` + trackingTable + ` (podcast_id, identity_kind, identity_value, last_title, last_checked)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (podcast_id) DO UPDATE SET
  identity_kind = excluded.identity_kind,
  identity_value = excluded.identity_value,
  last_title = excluded.last_title,
  last_checked = excluded.last_checked`

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.PodcastID,
			string(rec.LastIdentity.Kind),
			rec.LastIdentity.Value,
			rec.LastTitle,
			b.provider.Dialect().TimeValue(rec.LastChecked),
		)
		if err != nil {
			return fmt.Errorf("upsert tracking record %q: %w", rec.PodcastID, err)
		}
	}
	return nil
}

func (b *SQLBackend) deleteOthers(ctx context.Context, tx *sql.Tx, records []domain.TrackingRecord) error {
	query := `DELETE FROM ` + trackingTable
	args := make([]any, 0, len(records))
	if len(records) > 0 {
		placeholders := make([]string, len(records))
		for i, rec := range records {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, rec.PodcastID)
		}
		query += ` WHERE podcast_id NOT IN (` + strings.Join(placeholders, ", ") + `)`
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete untracked podcasts: %w", err)
	}
	return nil
}
