package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ContentSource pulls fresh content items from an upstream provider.
type ContentSource interface {
	FetchNew(ctx context.Context) ([]domain.ContentItem, error)
}

// ItemRepository persists processed items for deduplication, digests and backfill.
type ItemRepository interface {
	AlreadySeen(ctx context.Context, normalizedURLs []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, item domain.ProcessedItem) (int64, error)
	// ListIDs returns up to limit processed-item ids greater than afterID, ascending.
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	RawTags(ctx context.Context, itemID int64) ([]domain.RawTag, error)
	ReplaceTags(ctx context.Context, itemID int64, tags []domain.TagScore) error
	// ListRecent returns processed items created after since, tags attached.
	ListRecent(ctx context.Context, since time.Time) ([]domain.ProcessedItem, error)
}

// VocabularyStore holds the versioned snapshot sequence of the tag vocabulary.
// Commit is single-writer: a proposal whose base version is no longer current
// must fail with taxonomy.ErrStaleBaseVersion.
type VocabularyStore interface {
	Current(ctx context.Context) (domain.Snapshot, error)
	ByVersion(ctx context.Context, version string) (domain.Snapshot, error)
	Commit(ctx context.Context, snapshot domain.Snapshot) error
	Stats(ctx context.Context) (domain.VocabularyStats, error)
}

// RawTagLog is the append-only accumulation log of distinct raw tag strings.
type RawTagLog interface {
	Record(ctx context.Context, itemRef string, tags []domain.RawTag) error
	Corpus(ctx context.Context) ([]domain.RawTagStat, error)
}

// CursorStore persists backfill progress so an interrupted run resumes
// instead of restarting.
type CursorStore interface {
	Load(ctx context.Context, version string) (int64, error)
	Save(ctx context.Context, version string, lastItemID int64) error
}

// Extractor resolves a URL to full article text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// TagModel runs the generative prompt pipeline over raw content.
type TagModel interface {
	Analyze(ctx context.Context, title, content string) (domain.Analysis, error)
}

// Notifier delivers rendered digests to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
