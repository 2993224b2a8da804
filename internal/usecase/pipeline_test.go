package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/taxonomy"
)

type staticSource struct {
	items []domain.ContentItem
}

func (s *staticSource) FetchNew(context.Context) ([]domain.ContentItem, error) {
	return s.items, nil
}

type staticExtractor struct {
	texts map[string]string
}

func (e *staticExtractor) Extract(_ context.Context, url string) (string, error) {
	text, ok := e.texts[url]
	if !ok {
		return "", fmt.Errorf("no extraction for %s", url)
	}
	return text, nil
}

type staticTagModel struct {
	analyses map[string]domain.Analysis
	calls    int
}

func (m *staticTagModel) Analyze(_ context.Context, title, _ string) (domain.Analysis, error) {
	m.calls++
	analysis, ok := m.analyses[title]
	if !ok {
		return domain.Analysis{}, fmt.Errorf("model failure for %q", title)
	}
	return analysis, nil
}

func seedSnapshot(t *testing.T, mem *storage.Memory) domain.Snapshot {
	t.Helper()

	snap := domain.Snapshot{
		Version:     "v1",
		BaseVersion: "",
		CreatedAt:   time.Now(),
		Mapping: map[string][]string{
			"ai":                      {"artificial intelligence"},
			"artificial intelligence": {"artificial intelligence"},
		},
		Canonical: map[string]bool{"artificial intelligence": true},
	}
	if err := mem.Commit(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	return snap
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	seedSnapshot(t, mem)

	src := &staticSource{items: []domain.ContentItem{
		{ExternalID: "1", Source: "hn", Title: "first", URL: "https://example.com/a?utm_source=x"},
		{ExternalID: "2", Source: "hn", Title: "dup", URL: "https://example.com/a"},
		{ExternalID: "3", Source: "hn", Title: "second", URL: "https://example.com/b"},
	}}
	extractor := &staticExtractor{texts: map[string]string{
		"https://example.com/a?utm_source=x": "body a",
		"https://example.com/b":              "body b",
	}}
	model := &staticTagModel{analyses: map[string]domain.Analysis{
		"first": {
			Summary: "about ai",
			Tags:    []domain.RawTag{{Name: "AI", Score: 0.9}, {Name: "webassembly", Score: 0.5}},
		},
		"second": {
			Summary: "about go",
			Tags:    []domain.RawTag{{Name: "golang", Score: 0.8}},
		},
	}}

	p := NewPipeline(PipelineDeps{
		Source:     src,
		Repository: mem,
		Vocabulary: mem,
		Normalizer: taxonomy.NewNormalizer(mem, slog.Default()),
		Extractor:  extractor,
		TagModel:   model,
	})

	n, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 processed items, got %d", n)
	}
	if model.calls != 2 {
		t.Fatalf("expected duplicate to be skipped before analysis, got %d calls", model.calls)
	}

	items, err := mem.ListRecent(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListRecent error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 stored items, got %d", len(items))
	}

	byTitle := map[string]domain.ProcessedItem{}
	for _, item := range items {
		byTitle[item.Item.Title] = item
	}

	first := byTitle["first"]
	if len(first.Tags) != 2 {
		t.Fatalf("unexpected tags: %+v", first.Tags)
	}
	if first.Tags[0].Name != "artificial intelligence" || first.Tags[0].Provisional {
		t.Fatalf("expected canonical ai tag first, got %+v", first.Tags[0])
	}
	if first.Tags[1].Name != "webassembly" || !first.Tags[1].Provisional {
		t.Fatalf("expected provisional passthrough, got %+v", first.Tags[1])
	}

	corpus, err := mem.Corpus(context.Background())
	if err != nil {
		t.Fatalf("Corpus error: %v", err)
	}
	names := map[string]bool{}
	for _, stat := range corpus {
		names[stat.Name] = true
	}
	if !names["AI"] || !names["golang"] {
		t.Fatalf("expected verbatim raw tags in log, got %+v", corpus)
	}
}

func TestPipelineRunSkipsSeenURLs(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	seedSnapshot(t, mem)

	if _, err := mem.SaveProcessed(context.Background(), domain.ProcessedItem{
		Item:          domain.ContentItem{Title: "old"},
		NormalizedURL: "https://example.com/a",
		Status:        domain.StatusTagged,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	src := &staticSource{items: []domain.ContentItem{
		{ExternalID: "1", Source: "hn", Title: "first", URL: "https://www.example.com/a#frag"},
	}}

	p := NewPipeline(PipelineDeps{
		Source:     src,
		Repository: mem,
		Vocabulary: mem,
		Normalizer: taxonomy.NewNormalizer(mem, slog.Default()),
	})

	n, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no new items, got %d", n)
	}
}

func TestPipelineRunSkipsFailingItem(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	seedSnapshot(t, mem)

	src := &staticSource{items: []domain.ContentItem{
		{ExternalID: "1", Source: "hn", Title: "broken", URL: "https://example.com/a"},
		{ExternalID: "2", Source: "hn", Title: "second", URL: "https://example.com/b"},
	}}
	extractor := &staticExtractor{texts: map[string]string{
		"https://example.com/a": "body a",
		"https://example.com/b": "body b",
	}}
	model := &staticTagModel{analyses: map[string]domain.Analysis{
		"second": {Summary: "fine", Tags: []domain.RawTag{{Name: "ai", Score: 0.7}}},
	}}

	p := NewPipeline(PipelineDeps{
		Source:     src,
		Repository: mem,
		Vocabulary: mem,
		Normalizer: taxonomy.NewNormalizer(mem, slog.Default()),
		Extractor:  extractor,
		TagModel:   model,
	})

	n, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the healthy item to survive, got %d", n)
	}
}
