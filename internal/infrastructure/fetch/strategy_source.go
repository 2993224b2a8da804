package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/source"
)

// StrategySource implements ContentSource via registered fetcher strategies.
type StrategySource struct {
	registry *source.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ContentSource = (*StrategySource)(nil)

// NewStrategySource wires the fetcher registry with config-defined sources.
func NewStrategySource(reg *source.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchNew iterates over configured sources and executes their fetchers.
func (s *StrategySource) FetchNew(ctx context.Context) ([]domain.ContentItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("fetcher registry is not configured")
	}

	s.debug("fetch new", "sources", len(s.sources))

	var aggregated []domain.ContentItem
	for _, src := range s.sources {
		s.debug("process source", "source", src.Name, "fetcher", src.Fetcher)
		strategy, err := s.registry.Resolve(src.Fetcher)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := source.Request{
			SourceName: src.Name,
			MaxItems:   src.MaxItems,
			Options:    src.Options,
		}

		results, err := strategy.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetch source %s: %w", src.Name, err)
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}
		s.debug("source produced items", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
