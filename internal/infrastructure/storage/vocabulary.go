package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/taxonomy"
)

// PostgresVocabularyStore keeps the versioned snapshot sequence in Postgres.
// Commits take a row lock on the latest snapshot so two concurrent reviewer
// runs cannot both publish against the same base version.
type PostgresVocabularyStore struct {
	db *sql.DB
}

var _ ports.VocabularyStore = (*PostgresVocabularyStore)(nil)

// NewPostgresVocabularyStore wires a sql.DB implementation.
func NewPostgresVocabularyStore(db *sql.DB) *PostgresVocabularyStore {
	return &PostgresVocabularyStore{db: db}
}

// Current loads the latest snapshot. With no snapshots yet it returns an
// empty snapshot with version "", the base every first proposal builds on.
func (s *PostgresVocabularyStore) Current(ctx context.Context) (domain.Snapshot, error) {
	query, args, err := builder.
		Select("version", "base_version", "created_at", "mapping", "canonical", "changes").
		From("vocabulary_snapshots").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build current query: %w", err)
	}

	snap, err := s.scanSnapshot(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{Mapping: map[string][]string{}, Canonical: map[string]bool{}}, nil
	}
	return snap, err
}

// ByVersion loads one snapshot by its version identifier.
func (s *PostgresVocabularyStore) ByVersion(ctx context.Context, version string) (domain.Snapshot, error) {
	query, args, err := builder.
		Select("version", "base_version", "created_at", "mapping", "canonical", "changes").
		From("vocabulary_snapshots").
		Where(sq.Eq{"version": version}).
		ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build version query: %w", err)
	}

	snap, err := s.scanSnapshot(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("snapshot %s not found", version)
	}
	return snap, err
}

// Commit appends a snapshot after re-checking its base version inside a
// transaction. A mismatch means another reviewer run committed first; the
// caller retries against the new current version.
func (s *PostgresVocabularyStore) Commit(ctx context.Context, snapshot domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	row := tx.QueryRowContext(ctx,
		`SELECT version FROM vocabulary_snapshots ORDER BY created_at DESC LIMIT 1 FOR UPDATE`)
	if err := row.Scan(&current); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock latest snapshot: %w", err)
	}

	if current != snapshot.BaseVersion {
		return fmt.Errorf("commit %s against base %q, current is %q: %w",
			snapshot.Version, snapshot.BaseVersion, current, taxonomy.ErrStaleBaseVersion)
	}

	mapping, err := json.Marshal(snapshot.Mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	canonical, err := json.Marshal(canonicalList(snapshot.Canonical))
	if err != nil {
		return fmt.Errorf("marshal canonical: %w", err)
	}
	changes, err := json.Marshal(snapshot.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	query, args, err := builder.
		Insert("vocabulary_snapshots").
		Columns("version", "base_version", "created_at", "mapping", "canonical", "changes").
		Values(snapshot.Version, snapshot.BaseVersion, snapshot.CreatedAt, mapping, canonical, changes).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Stats reports vocabulary size for the administrative interface.
func (s *PostgresVocabularyStore) Stats(ctx context.Context) (domain.VocabularyStats, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return domain.VocabularyStats{}, err
	}
	return domain.VocabularyStats{
		Version:        snap.Version,
		CanonicalCount: len(snap.Canonical),
		MappedRawCount: len(snap.Mapping),
	}, nil
}

func (s *PostgresVocabularyStore) scanSnapshot(row *sql.Row) (domain.Snapshot, error) {
	var (
		snap                        domain.Snapshot
		mapping, canonical, changes []byte
	)
	if err := row.Scan(&snap.Version, &snap.BaseVersion, &snap.CreatedAt, &mapping, &canonical, &changes); err != nil {
		return domain.Snapshot{}, err
	}

	// A snapshot that no longer unmarshals is corrupt vocabulary state; the
	// error is surfaced as-is and halts the batch run.
	if err := json.Unmarshal(mapping, &snap.Mapping); err != nil {
		return domain.Snapshot{}, fmt.Errorf("malformed snapshot %s mapping: %w", snap.Version, err)
	}
	var names []string
	if err := json.Unmarshal(canonical, &names); err != nil {
		return domain.Snapshot{}, fmt.Errorf("malformed snapshot %s canonical set: %w", snap.Version, err)
	}
	snap.Canonical = make(map[string]bool, len(names))
	for _, name := range names {
		snap.Canonical[name] = true
	}
	if err := json.Unmarshal(changes, &snap.Changes); err != nil {
		return domain.Snapshot{}, fmt.Errorf("malformed snapshot %s change-set: %w", snap.Version, err)
	}
	return snap, nil
}

func canonicalList(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}
