package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// PostgresItemRepository persists processed items, their verbatim raw tags,
// canonical tags and entities.
type PostgresItemRepository struct {
	db *sql.DB
}

var _ ports.ItemRepository = (*PostgresItemRepository)(nil)

// NewPostgresItemRepository wires a sql.DB implementation.
func NewPostgresItemRepository(db *sql.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

// AlreadySeen returns which normalized URLs already have a processed item.
func (r *PostgresItemRepository) AlreadySeen(ctx context.Context, normalizedURLs []string) (map[string]bool, error) {
	if len(normalizedURLs) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := builder.
		Select("normalized_url").
		From("processed_items").
		Where(sq.Eq{"normalized_url": normalizedURLs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen urls: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		seen[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return seen, nil
}

// dedupeKey is the upsert identity of an item: its normalized URL, or a
// per-source key for items that have no URL (Ask HN style posts), so two
// distinct URL-less items never collapse onto one row.
func dedupeKey(item domain.ProcessedItem) string {
	if item.NormalizedURL != "" {
		return item.NormalizedURL
	}
	return fmt.Sprintf("%s:%s", item.Item.Source, item.Item.ExternalID)
}

// SaveProcessed upserts the item by its dedupe key and rewrites its raw tags,
// canonical tags and entities in one transaction.
func (r *PostgresItemRepository) SaveProcessed(ctx context.Context, item domain.ProcessedItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	row := tx.QueryRowContext(ctx,
		`INSERT INTO processed_items (source, external_id, title, url, normalized_url, dedupe_key, summary, status, published_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (dedupe_key) DO UPDATE
         SET summary = EXCLUDED.summary,
             status = EXCLUDED.status,
             updated_at = NOW()
         RETURNING id`,
		item.Item.Source,
		item.Item.ExternalID,
		item.Item.Title,
		item.Item.URL,
		item.NormalizedURL,
		dedupeKey(item),
		item.Summary,
		item.Status,
		nullableTime(item.Item.PublishedAt),
	)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert item: %w", err)
	}

	if err := r.replaceRawTags(ctx, tx, id, item.RawTags); err != nil {
		return 0, err
	}
	if err := replaceTagsTx(ctx, tx, id, item.Tags); err != nil {
		return 0, err
	}
	if err := r.replaceEntities(ctx, tx, id, item.Entities); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return id, nil
}

// ListIDs returns up to limit item ids greater than afterID, ascending.
func (r *PostgresItemRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	query, args, err := builder.
		Select("id").
		From("processed_items").
		Where(sq.Gt{"id": afterID}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ids query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// RawTags loads the verbatim raw tags recorded for one item.
func (r *PostgresItemRepository) RawTags(ctx context.Context, itemID int64) ([]domain.RawTag, error) {
	query, args, err := builder.
		Select("name", "score").
		From("item_raw_tags").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build raw tags query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query raw tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.RawTag
	for rows.Next() {
		var tag domain.RawTag
		if err := rows.Scan(&tag.Name, &tag.Score); err != nil {
			return nil, fmt.Errorf("scan raw tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return tags, nil
}

// ReplaceTags swaps one item's canonical tag set, used by the backfill.
func (r *PostgresItemRepository) ReplaceTags(ctx context.Context, itemID int64, tags []domain.TagScore) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceTagsTx(ctx, tx, itemID, tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ListRecent returns processed items created after since, canonical tags
// attached, newest first.
func (r *PostgresItemRepository) ListRecent(ctx context.Context, since time.Time) ([]domain.ProcessedItem, error) {
	query, args, err := builder.
		Select("id", "source", "external_id", "title", "url", "normalized_url", "summary", "status", "created_at").
		From("processed_items").
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	var items []domain.ProcessedItem
	for rows.Next() {
		var item domain.ProcessedItem
		if err := rows.Scan(
			&item.ID,
			&item.Item.Source,
			&item.Item.ExternalID,
			&item.Item.Title,
			&item.Item.URL,
			&item.NormalizedURL,
			&item.Summary,
			&item.Status,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	for i := range items {
		tags, err := r.itemTags(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Tags = tags
	}
	return items, nil
}

func (r *PostgresItemRepository) itemTags(ctx context.Context, itemID int64) ([]domain.TagScore, error) {
	query, args, err := builder.
		Select("name", "score", "provisional").
		From("item_tags").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("score DESC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query item tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.TagScore
	for rows.Next() {
		var tag domain.TagScore
		if err := rows.Scan(&tag.Name, &tag.Score, &tag.Provisional); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return tags, nil
}

func (r *PostgresItemRepository) replaceRawTags(ctx context.Context, tx *sql.Tx, itemID int64, tags []domain.RawTag) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_raw_tags WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clear raw tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_raw_tags (item_id, name, score) VALUES ($1, $2, $3)
             ON CONFLICT (item_id, name) DO UPDATE SET score = GREATEST(item_raw_tags.score, EXCLUDED.score)`,
			itemID, tag.Name, tag.Score,
		); err != nil {
			return fmt.Errorf("insert raw tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

func replaceTagsTx(ctx context.Context, tx *sql.Tx, itemID int64, tags []domain.TagScore) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_tags (item_id, name, score, provisional) VALUES ($1, $2, $3, $4)`,
			itemID, tag.Name, tag.Score, tag.Provisional,
		); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

func (r *PostgresItemRepository) replaceEntities(ctx context.Context, tx *sql.Tx, itemID int64, entities []domain.Entity) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_entities WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}
	for _, e := range entities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_entities (item_id, name, type, score, context) VALUES ($1, $2, $3, $4, $5)`,
			itemID, e.Name, e.Type, e.Score, e.Context,
		); err != nil {
			return fmt.Errorf("insert entity %q: %w", e.Name, err)
		}
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
