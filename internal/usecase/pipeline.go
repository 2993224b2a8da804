package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/taxonomy"
	"NewsDigest/internal/urlnorm"
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source     ports.ContentSource
	Repository ports.ItemRepository
	Vocabulary ports.VocabularyStore
	Normalizer *taxonomy.Normalizer
	Extractor  ports.Extractor
	TagModel   ports.TagModel
	Logger     *slog.Logger
}

// Pipeline implements the content-ingestion workflow: fetch, dedupe by
// normalized URL, extract, analyze, normalize tags, persist. A failure on one
// item is logged and skipped; it never aborts the rest of the batch.
type Pipeline struct {
	source     ports.ContentSource
	repository ports.ItemRepository
	vocabulary ports.VocabularyStore
	normalizer *taxonomy.Normalizer
	extractor  ports.Extractor
	tagModel   ports.TagModel
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		vocabulary: deps.Vocabulary,
		normalizer: deps.Normalizer,
		extractor:  deps.Extractor,
		tagModel:   deps.TagModel,
		logger:     logger,
	}
}

// Run executes one full ingestion pass and returns how many items were
// processed and stored.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	if p.source == nil || p.repository == nil {
		return 0, fmt.Errorf("pipeline missing source or repository")
	}

	items, err := p.source.FetchNew(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch new items: %w", err)
	}

	fresh := p.dedupe(items)
	seen, err := p.alreadySeen(ctx, fresh)
	if err != nil {
		return 0, err
	}

	snap, err := p.vocabulary.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("load vocabulary: %w", err)
	}

	processed := 0
	for _, item := range fresh {
		normalized := urlnorm.Normalize(item.URL)
		if item.URL != "" && seen[normalized] {
			continue
		}

		if err := p.processItem(ctx, item, normalized, snap); err != nil {
			p.logger.Error("item failed", "source", item.Source, "id", item.ExternalID, "error", err)
			continue
		}
		processed++
	}

	p.logger.Info("ingestion pass done", "fetched", len(items), "processed", processed)
	return processed, nil
}

func (p *Pipeline) processItem(ctx context.Context, item domain.ContentItem, normalized string, snap domain.Snapshot) error {
	body := item.Body
	if item.URL != "" && p.extractor != nil {
		text, err := p.extractor.Extract(ctx, item.URL)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if text != "" {
			body = text
		}
	}
	if body == "" && item.Title == "" {
		return fmt.Errorf("no content to analyze")
	}

	analysis := domain.Analysis{Summary: body}
	if p.tagModel != nil {
		var err error
		analysis, err = p.tagModel.Analyze(ctx, item.Title, body)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
	}

	itemRef := fmt.Sprintf("%s:%s", item.Source, item.ExternalID)
	var tags []domain.TagScore
	if p.normalizer != nil {
		var err error
		tags, err = p.normalizer.Normalize(ctx, itemRef, analysis.Tags, snap)
		if err != nil {
			p.logger.Warn("invalid raw tags skipped", "item", itemRef, "error", err)
		}
	}

	status := domain.StatusTagged
	if p.tagModel == nil {
		status = domain.StatusExtracted
	}

	_, err := p.repository.SaveProcessed(ctx, domain.ProcessedItem{
		Item:          item,
		NormalizedURL: normalized,
		Summary:       analysis.Summary,
		RawTags:       analysis.Tags,
		Tags:          tags,
		Entities:      analysis.Entities,
		Status:        status,
	})
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// dedupe drops batch-internal duplicates that normalize to the same URL.
// Items without a URL are kept as-is.
func (p *Pipeline) dedupe(items []domain.ContentItem) []domain.ContentItem {
	seen := map[string]bool{}
	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if item.URL != "" {
			key := urlnorm.Normalize(item.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, item)
	}
	return out
}

func (p *Pipeline) alreadySeen(ctx context.Context, items []domain.ContentItem) (map[string]bool, error) {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if item.URL != "" {
			urls = append(urls, urlnorm.Normalize(item.URL))
		}
	}
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	seen, err := p.repository.AlreadySeen(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("load seen urls: %w", err)
	}
	return seen, nil
}
