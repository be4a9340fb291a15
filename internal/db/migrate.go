package db

import (
	"context"
	"database/sql"
)

// DB wraps the connection used by the postgres storage backend.
type DB struct {
	*sql.DB
}

const storageMigration = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key text PRIMARY KEY,
    value text NOT NULL,
    expires_at timestamptz,
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS kv_entries_expires_at_idx
ON kv_entries (expires_at)
WHERE expires_at IS NOT NULL;
`

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &DB{DB: sqlDB}, nil
}

func RunStorageMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, storageMigration)
	return err
}
