package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// builder is the shared statement builder for Postgres placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// InitSchema creates the tables the stores expect when they are absent.
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS processed_items (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			normalized_url TEXT NOT NULL,
			dedupe_key TEXT NOT NULL UNIQUE,
			summary TEXT NOT NULL,
			status TEXT NOT NULL,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS item_raw_tags (
			item_id BIGINT NOT NULL REFERENCES processed_items(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (item_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS item_tags (
			item_id BIGINT NOT NULL REFERENCES processed_items(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			provisional BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (item_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS item_entities (
			item_id BIGINT NOT NULL REFERENCES processed_items(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			context TEXT NOT NULL,
			PRIMARY KEY (item_id, name, type)
		)`,
		`CREATE TABLE IF NOT EXISTS vocabulary_snapshots (
			version UUID PRIMARY KEY,
			base_version TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			mapping JSONB NOT NULL,
			canonical JSONB NOT NULL,
			changes JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS raw_tag_log (
			name TEXT PRIMARY KEY,
			frequency BIGINT NOT NULL DEFAULT 0,
			last_item_ref TEXT NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS backfill_cursors (
			version TEXT PRIMARY KEY,
			last_item_id BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
