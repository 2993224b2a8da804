package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"NewsDigest/internal/domain"
)

// analysisDoc mirrors the YAML document the model is asked to produce.
type analysisDoc struct {
	Summary string `yaml:"summary"`
	Tags    []struct {
		Name  string  `yaml:"name"`
		Score float64 `yaml:"score"`
	} `yaml:"tags"`
	Entities []struct {
		Name    string  `yaml:"name"`
		Type    string  `yaml:"type"`
		Score   float64 `yaml:"score"`
		Context string  `yaml:"context"`
	} `yaml:"entities"`
}

// cleanCodeBlock strips Markdown code fences and null bytes the model tends
// to wrap YAML responses in.
func cleanCodeBlock(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\x00", "")
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```yaml")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// parseAnalysis validates and converts a model response. Entities with a
// missing field, unknown type or out-of-range score are skipped with a log
// line; a missing summary or empty tag list rejects the whole response so the
// caller can retry with a format correction.
func parseAnalysis(raw string, logger *slog.Logger) (domain.Analysis, error) {
	var doc analysisDoc
	if err := yaml.Unmarshal([]byte(cleanCodeBlock(raw)), &doc); err != nil {
		return domain.Analysis{}, fmt.Errorf("invalid yaml: %w", err)
	}

	if strings.TrimSpace(doc.Summary) == "" {
		return domain.Analysis{}, fmt.Errorf("response has no summary")
	}
	if len(doc.Tags) == 0 {
		return domain.Analysis{}, fmt.Errorf("response has no tags")
	}

	analysis := domain.Analysis{Summary: doc.Summary}

	for _, tag := range doc.Tags {
		if strings.TrimSpace(tag.Name) == "" {
			return domain.Analysis{}, fmt.Errorf("tag entry with empty name")
		}
		if tag.Score < 0 || tag.Score > 1 {
			return domain.Analysis{}, fmt.Errorf("tag %q score %v out of range", tag.Name, tag.Score)
		}
		analysis.Tags = append(analysis.Tags, domain.RawTag{Name: tag.Name, Score: tag.Score})
	}

	for _, e := range doc.Entities {
		if e.Name == "" || e.Type == "" || e.Context == "" {
			logger.Warn("skipping entity with missing data", "entity", e.Name)
			continue
		}
		entityType := domain.EntityType(e.Type)
		if !domain.ValidEntityType(entityType) {
			logger.Warn("skipping entity with invalid type", "entity", e.Name, "type", e.Type)
			continue
		}
		if e.Score < 0 || e.Score > 1 {
			logger.Warn("skipping entity with invalid score", "entity", e.Name, "score", e.Score)
			continue
		}
		analysis.Entities = append(analysis.Entities, domain.Entity{
			Name:    e.Name,
			Type:    entityType,
			Score:   e.Score,
			Context: e.Context,
		})
	}

	return analysis, nil
}
