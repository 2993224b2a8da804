package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// PostgresRawTagLog is the append-only accumulation log: one row per distinct
// raw tag string with a running frequency and the last item it was seen on.
type PostgresRawTagLog struct {
	db *sql.DB
}

var _ ports.RawTagLog = (*PostgresRawTagLog)(nil)

// NewPostgresRawTagLog wires a sql.DB implementation.
func NewPostgresRawTagLog(db *sql.DB) *PostgresRawTagLog {
	return &PostgresRawTagLog{db: db}
}

// Record bumps the frequency of each raw tag, inserting unseen strings.
func (l *PostgresRawTagLog) Record(ctx context.Context, itemRef string, tags []domain.RawTag) error {
	for _, tag := range tags {
		if _, err := l.db.ExecContext(ctx,
			`INSERT INTO raw_tag_log (name, frequency, last_item_ref, last_seen)
             VALUES ($1, 1, $2, NOW())
             ON CONFLICT (name) DO UPDATE
             SET frequency = raw_tag_log.frequency + 1,
                 last_item_ref = EXCLUDED.last_item_ref,
                 last_seen = NOW()`,
			tag.Name, itemRef,
		); err != nil {
			return fmt.Errorf("record raw tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

// Corpus returns every distinct raw tag with its stats, most frequent first.
func (l *PostgresRawTagLog) Corpus(ctx context.Context) ([]domain.RawTagStat, error) {
	query, args, err := builder.
		Select("name", "frequency", "last_item_ref", "last_seen").
		From("raw_tag_log").
		OrderBy("frequency DESC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build corpus query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var stats []domain.RawTagStat
	for rows.Next() {
		var s domain.RawTagStat
		if err := rows.Scan(&s.Name, &s.Frequency, &s.LastItemRef, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return stats, nil
}

// PostgresCursorStore persists backfill progress per snapshot version.
type PostgresCursorStore struct {
	db *sql.DB
}

var _ ports.CursorStore = (*PostgresCursorStore)(nil)

// NewPostgresCursorStore wires a sql.DB implementation.
func NewPostgresCursorStore(db *sql.DB) *PostgresCursorStore {
	return &PostgresCursorStore{db: db}
}

// Load returns the last completed item id for a version, zero when none.
func (c *PostgresCursorStore) Load(ctx context.Context, version string) (int64, error) {
	var cursor int64
	err := c.db.QueryRowContext(ctx,
		`SELECT last_item_id FROM backfill_cursors WHERE version = $1`, version,
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return cursor, nil
}

// Save records backfill progress for a version.
func (c *PostgresCursorStore) Save(ctx context.Context, version string, lastItemID int64) error {
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO backfill_cursors (version, last_item_id, updated_at)
         VALUES ($1, $2, NOW())
         ON CONFLICT (version) DO UPDATE
         SET last_item_id = EXCLUDED.last_item_id, updated_at = NOW()`,
		version, lastItemID,
	); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
