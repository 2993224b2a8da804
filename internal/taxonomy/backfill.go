package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	defaultBackfillBatch       = 200
	defaultBackfillConcurrency = 8
)

// Backfill retroactively recomputes stored canonical tags after a vocabulary
// change, so filtering always reflects the latest taxonomy. Items are rewritten
// in parallel; progress is persisted per snapshot version, making an
// interrupted run resumable and a completed run idempotent.
type Backfill struct {
	items       ports.ItemRepository
	cursors     ports.CursorStore
	logger      *slog.Logger
	batchSize   int
	concurrency int
}

// NewBackfill wires the repositories; logger may be nil.
func NewBackfill(items ports.ItemRepository, cursors ports.CursorStore, logger *slog.Logger) *Backfill {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfill{
		items:       items,
		cursors:     cursors,
		logger:      logger,
		batchSize:   defaultBackfillBatch,
		concurrency: defaultBackfillConcurrency,
	}
}

// SetConcurrency bounds the number of items rewritten in parallel.
func (b *Backfill) SetConcurrency(n int) {
	if n > 0 {
		b.concurrency = n
	}
}

// Run rewrites every item's canonical tags from its recorded raw tags using
// the accepted snapshot. The cursor advances only after a whole batch is
// rewritten, so rerunning after an interruption redoes at most one batch.
func (b *Backfill) Run(ctx context.Context, snap domain.Snapshot) error {
	cursor, err := b.cursors.Load(ctx, snap.Version)
	if err != nil {
		return fmt.Errorf("load backfill cursor: %w", err)
	}
	if cursor > 0 {
		b.logger.Info("resuming backfill", "version", snap.Version, "after_item", cursor)
	}

	for {
		ids, err := b.items.ListIDs(ctx, cursor, b.batchSize)
		if err != nil {
			return fmt.Errorf("list items after %d: %w", cursor, err)
		}
		if len(ids) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				return b.rewriteItem(gctx, id, snap)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("backfill batch after %d: %w", cursor, err)
		}

		cursor = ids[len(ids)-1]
		if err := b.cursors.Save(ctx, snap.Version, cursor); err != nil {
			return fmt.Errorf("save backfill cursor: %w", err)
		}
	}

	b.logger.Info("backfill complete", "version", snap.Version)
	return nil
}

func (b *Backfill) rewriteItem(ctx context.Context, id int64, snap domain.Snapshot) error {
	raw, err := b.items.RawTags(ctx, id)
	if err != nil {
		return fmt.Errorf("load raw tags for item %d: %w", id, err)
	}

	tags, err := Apply(raw, snap)
	if err != nil {
		// Stored raw tags were validated at ingestion; anything invalid now
		// points at a corrupt record. Keep the valid remainder and flag it.
		b.logger.Warn("invalid stored raw tags", "item", id, "error", err)
	}

	if err := b.items.ReplaceTags(ctx, id, tags); err != nil {
		return fmt.Errorf("replace tags for item %d: %w", id, err)
	}
	return nil
}
