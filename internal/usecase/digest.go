package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/taxonomy"
)

// DigestDeps wires the digest rendering workflow.
type DigestDeps struct {
	Repository ports.ItemRepository
	Notifier   ports.Notifier
	// RelevantTags lists the canonical tags a digest section is built for.
	RelevantTags []string
	// MinScore filters out weakly related items per tag.
	MinScore float64
	// Window bounds how far back ListRecent looks.
	Window time.Duration
	Logger *slog.Logger
}

// Digest selects recently processed items by their canonical tags and
// publishes a grouped message through the notifier.
type Digest struct {
	repository   ports.ItemRepository
	notifier     ports.Notifier
	relevantTags []string
	minScore     float64
	window       time.Duration
	logger       *slog.Logger
}

// NewDigest constructs the digest workflow. The window defaults to 24 hours.
func NewDigest(deps DigestDeps) *Digest {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := deps.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Digest{
		repository:   deps.Repository,
		notifier:     deps.Notifier,
		relevantTags: deps.RelevantTags,
		minScore:     deps.MinScore,
		window:       window,
		logger:       logger,
	}
}

// Run renders and publishes the digest for items created in the window
// ending at now. An empty selection publishes nothing.
func (d *Digest) Run(ctx context.Context, now time.Time) error {
	if d.repository == nil {
		return fmt.Errorf("digest missing repository")
	}

	items, err := d.repository.ListRecent(ctx, now.Add(-d.window))
	if err != nil {
		return fmt.Errorf("list recent items: %w", err)
	}

	sections := d.group(items)
	if len(sections) == 0 {
		d.logger.Info("no relevant items for digest")
		return nil
	}

	message := renderDigest(sections)
	if d.notifier == nil {
		d.logger.Info("digest rendered without notifier", "sections", len(sections))
		return nil
	}
	if err := d.notifier.PublishDigest(ctx, message); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}

	d.logger.Info("digest published", "sections", len(sections), "items", len(items))
	return nil
}

type digestSection struct {
	Tag   string
	Items []domain.ProcessedItem
}

// group buckets items under each relevant tag they carry with a sufficient
// score. An item can appear in several sections.
func (d *Digest) group(items []domain.ProcessedItem) []digestSection {
	relevant := make(map[string]bool, len(d.relevantTags))
	for _, tag := range d.relevantTags {
		relevant[taxonomy.Fold(tag)] = true
	}

	byTag := map[string][]domain.ProcessedItem{}
	for _, item := range items {
		for _, tag := range item.Tags {
			if !relevant[tag.Name] || tag.Score < d.minScore {
				continue
			}
			byTag[tag.Name] = append(byTag[tag.Name], item)
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	sections := make([]digestSection, 0, len(tags))
	for _, tag := range tags {
		sections = append(sections, digestSection{Tag: tag, Items: byTag[tag]})
	}
	return sections
}

func renderDigest(sections []digestSection) string {
	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "*%s*\n", section.Tag)
		for _, item := range section.Items {
			fmt.Fprintf(&sb, "- %s\n", item.Item.Title)
			if item.Summary != "" {
				fmt.Fprintf(&sb, "  %s\n", item.Summary)
			}
			if item.Item.URL != "" {
				fmt.Fprintf(&sb, "  %s\n", item.Item.URL)
			}
		}
	}
	return sb.String()
}
