package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Apply projects one item's raw tags through a vocabulary snapshot. Unknown
// raw tags pass through folded as provisional canonical tags; duplicates
// merge by taking the maximum score so near-duplicate signals are never
// double-counted. Raw tags explicitly mapped to zero targets are discarded.
//
// Invalid raw tags (empty name, score outside [0,1]) are skipped and reported
// through the returned error; the valid tags are still returned. The function
// is pure: same input and snapshot always yield the same output.
func Apply(raw []domain.RawTag, snap domain.Snapshot) ([]domain.TagScore, error) {
	var invalid []error
	merged := make(map[string]domain.TagScore)

	for _, tag := range raw {
		folded := Fold(tag.Name)
		if folded == "" {
			invalid = append(invalid, fmt.Errorf("%w: empty name", ErrInvalidRawTag))
			continue
		}
		if tag.Score < 0 || tag.Score > 1 {
			invalid = append(invalid, fmt.Errorf("%w: %q score %v out of range", ErrInvalidRawTag, tag.Name, tag.Score))
			continue
		}

		targets, known := snap.Targets(folded)
		provisional := false
		if !known {
			targets = []string{folded}
			provisional = true
		}

		for _, target := range targets {
			existing, ok := merged[target]
			if !ok {
				merged[target] = domain.TagScore{Name: target, Score: tag.Score, Provisional: provisional}
				continue
			}
			if tag.Score > existing.Score {
				existing.Score = tag.Score
			}
			// A target is provisional only while every contribution is.
			existing.Provisional = existing.Provisional && provisional
			merged[target] = existing
		}
	}

	out := make([]domain.TagScore, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})

	return out, errors.Join(invalid...)
}

// Normalizer wires the pure mapping step to the accumulation log so that
// every raw tag the pipeline sees, known or not, reaches the next reviewer
// pass. Stateless apart from the log; safe for concurrent use across items.
type Normalizer struct {
	log    ports.RawTagLog
	logger *slog.Logger
}

// NewNormalizer builds a normalizer; logger may be nil.
func NewNormalizer(log ports.RawTagLog, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{log: log, logger: logger}
}

// Normalize records the item's valid raw tags and applies the snapshot.
// A non-nil error alongside results means some raw tags were rejected as
// invalid; the caller keeps the returned tags and decides whether to surface
// the rejection.
func (n *Normalizer) Normalize(ctx context.Context, itemRef string, raw []domain.RawTag, snap domain.Snapshot) ([]domain.TagScore, error) {
	valid := make([]domain.RawTag, 0, len(raw))
	for _, tag := range raw {
		if Fold(tag.Name) == "" || tag.Score < 0 || tag.Score > 1 {
			continue
		}
		valid = append(valid, tag)
	}

	if n.log != nil && len(valid) > 0 {
		if err := n.log.Record(ctx, itemRef, valid); err != nil {
			return nil, fmt.Errorf("record raw tags for %s: %w", itemRef, err)
		}
	}

	tags, err := Apply(raw, snap)
	if err != nil {
		n.logger.Warn("rejected invalid raw tags", "item", itemRef, "error", err)
	}
	return tags, err
}
