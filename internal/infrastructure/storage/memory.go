package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/taxonomy"
)

// Memory implements every repository port in process memory. It backs local
// runs without a database and the test suites; semantics mirror the Postgres
// stores, including the optimistic snapshot commit.
type Memory struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	items     map[int64]domain.ProcessedItem
	nextID    int64
	byKey     map[string]int64
	tagLog    map[string]*domain.RawTagStat
	cursors   map[string]int64
}

var (
	_ ports.VocabularyStore = (*Memory)(nil)
	_ ports.ItemRepository  = (*Memory)(nil)
	_ ports.RawTagLog       = (*Memory)(nil)
	_ ports.CursorStore     = (*Memory)(nil)
)

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items:   make(map[int64]domain.ProcessedItem),
		byKey:   make(map[string]int64),
		tagLog:  make(map[string]*domain.RawTagStat),
		cursors: make(map[string]int64),
	}
}

// Current returns the latest snapshot, or an empty base snapshot.
func (m *Memory) Current(context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.snapshots) == 0 {
		return domain.Snapshot{Mapping: map[string][]string{}, Canonical: map[string]bool{}}, nil
	}
	return m.snapshots[len(m.snapshots)-1], nil
}

// ByVersion returns a snapshot by version identifier.
func (m *Memory) ByVersion(_ context.Context, version string) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snap := range m.snapshots {
		if snap.Version == version {
			return snap, nil
		}
	}
	return domain.Snapshot{}, fmt.Errorf("snapshot %s not found", version)
}

// Commit appends a snapshot, enforcing the base-version check.
func (m *Memory) Commit(_ context.Context, snapshot domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := ""
	if len(m.snapshots) > 0 {
		current = m.snapshots[len(m.snapshots)-1].Version
	}
	if current != snapshot.BaseVersion {
		return fmt.Errorf("commit %s against base %q, current is %q: %w",
			snapshot.Version, snapshot.BaseVersion, current, taxonomy.ErrStaleBaseVersion)
	}

	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

// Stats reports vocabulary size.
func (m *Memory) Stats(ctx context.Context) (domain.VocabularyStats, error) {
	snap, err := m.Current(ctx)
	if err != nil {
		return domain.VocabularyStats{}, err
	}
	return domain.VocabularyStats{
		Version:        snap.Version,
		CanonicalCount: len(snap.Canonical),
		MappedRawCount: len(snap.Mapping),
	}, nil
}

// AlreadySeen reports which normalized URLs are stored.
func (m *Memory) AlreadySeen(_ context.Context, normalizedURLs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	for _, u := range normalizedURLs {
		if _, ok := m.byKey[u]; ok {
			seen[u] = true
		}
	}
	return seen, nil
}

// SaveProcessed upserts an item by its dedupe key: the normalized URL, or
// the per-source fallback for URL-less items.
func (m *Memory) SaveProcessed(_ context.Context, item domain.ProcessedItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dedupeKey(item)
	id, ok := m.byKey[key]
	if !ok {
		m.nextID++
		id = m.nextID
		m.byKey[key] = id
		item.CreatedAt = time.Now().UTC()
	} else {
		item.CreatedAt = m.items[id].CreatedAt
	}
	item.ID = id
	item.UpdatedAt = time.Now().UTC()
	m.items[id] = item
	return id, nil
}

// ListIDs returns up to limit item ids greater than afterID, ascending.
func (m *Memory) ListIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// RawTags returns the raw tags recorded for one item.
func (m *Memory) RawTags(_ context.Context, itemID int64) ([]domain.RawTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d not found", itemID)
	}
	return append([]domain.RawTag(nil), item.RawTags...), nil
}

// ReplaceTags swaps one item's canonical tag set.
func (m *Memory) ReplaceTags(_ context.Context, itemID int64, tags []domain.TagScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %d not found", itemID)
	}
	item.Tags = append([]domain.TagScore(nil), tags...)
	m.items[itemID] = item
	return nil
}

// ListRecent returns items created after since, newest first.
func (m *Memory) ListRecent(_ context.Context, since time.Time) ([]domain.ProcessedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.ProcessedItem
	for _, item := range m.items {
		if !item.CreatedAt.Before(since) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

// Record bumps raw tag frequencies.
func (m *Memory) Record(_ context.Context, itemRef string, tags []domain.RawTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, tag := range tags {
		stat, ok := m.tagLog[tag.Name]
		if !ok {
			stat = &domain.RawTagStat{Name: tag.Name}
			m.tagLog[tag.Name] = stat
		}
		stat.Frequency++
		stat.LastItemRef = itemRef
		stat.LastSeen = now
	}
	return nil
}

// Corpus returns the accumulated raw tag stats, most frequent first.
func (m *Memory) Corpus(context.Context) ([]domain.RawTagStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]domain.RawTagStat, 0, len(m.tagLog))
	for _, stat := range m.tagLog {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// Load returns the backfill cursor for a version.
func (m *Memory) Load(_ context.Context, version string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[version], nil
}

// Save records backfill progress for a version.
func (m *Memory) Save(_ context.Context, version string, lastItemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[version] = lastItemID
	return nil
}
