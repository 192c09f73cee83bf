package db

import "database/sql"

// DBProvider is implemented by the SQL clients that expose a sql.DB handle.
// PostgresClient, SupabaseClient and SQLiteClient can be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
	Dialect() Dialect
}

// Dialect names the SQL flavour behind a DBProvider.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)
