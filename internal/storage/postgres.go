package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresKV stores entries in the kv_entries table created by
// db.RunStorageMigration. Expired rows are filtered on read and
// removed by Sweep.
type PostgresKV struct {
	db *sql.DB
}

func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

func (p *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `
		SELECT value
		FROM kv_entries
		WHERE key = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: postgres get %q: %w", key, err)
	}
	return value, nil
}

func (p *PostgresKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("storage: postgres set %q: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("storage: postgres delete %q: %w", key, err)
	}
	return nil
}

// Sweep deletes expired rows and reports how many were removed.
func (p *PostgresKV) Sweep(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM kv_entries
		WHERE expires_at IS NOT NULL AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("storage: postgres sweep: %w", err)
	}
	return res.RowsAffected()
}
