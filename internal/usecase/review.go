package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/taxonomy"
)

const commitAttempts = 3

// ReviewDeps wires the taxonomy review workflow.
type ReviewDeps struct {
	Vocabulary ports.VocabularyStore
	TagLog     ports.RawTagLog
	Reviewer   *taxonomy.Reviewer
	Validator  *taxonomy.Validator
	Backfill   *taxonomy.Backfill
	Logger     *slog.Logger
}

// Review runs the periodic vocabulary revision: propose a new snapshot from
// the accumulated raw tag corpus, validate it, commit it, and rewrite stored
// items against the new version.
type Review struct {
	vocabulary ports.VocabularyStore
	tagLog     ports.RawTagLog
	reviewer   *taxonomy.Reviewer
	validator  *taxonomy.Validator
	backfill   *taxonomy.Backfill
	logger     *slog.Logger
}

// NewReview constructs the review workflow.
func NewReview(deps ReviewDeps) *Review {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Review{
		vocabulary: deps.Vocabulary,
		tagLog:     deps.TagLog,
		reviewer:   deps.Reviewer,
		validator:  deps.Validator,
		backfill:   deps.Backfill,
		logger:     logger,
	}
}

// Run executes one review cycle. With dryRun the proposal is validated and
// returned without committing or touching stored items.
//
// A commit rejected because another writer advanced the vocabulary is retried
// from the fresh current snapshot a bounded number of times.
func (r *Review) Run(ctx context.Context, dryRun bool) (domain.Snapshot, error) {
	corpus, err := r.tagLog.Corpus(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load raw tag corpus: %w", err)
	}

	var proposal domain.Snapshot
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		current, err := r.vocabulary.Current(ctx)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("load current vocabulary: %w", err)
		}

		proposal = r.reviewer.Propose(current, corpus)
		if err := r.validator.Validate(current, proposal, corpus); err != nil {
			return domain.Snapshot{}, fmt.Errorf("proposal rejected: %w", err)
		}

		r.logger.Info("proposal built",
			"base", proposal.BaseVersion,
			"canonical", len(proposal.Canonical),
			"added", len(proposal.Changes.Added),
			"merged", len(proposal.Changes.Merged),
			"split", len(proposal.Changes.Split),
			"discarded", len(proposal.Changes.Discarded))

		if dryRun {
			return proposal, nil
		}

		err = r.vocabulary.Commit(ctx, proposal)
		if err == nil {
			break
		}
		if errors.Is(err, taxonomy.ErrStaleBaseVersion) && attempt < commitAttempts {
			r.logger.Warn("vocabulary advanced underneath proposal, retrying", "attempt", attempt)
			continue
		}
		return domain.Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}

	if r.backfill != nil {
		if err := r.backfill.Run(ctx, proposal); err != nil {
			return proposal, fmt.Errorf("backfill against %s: %w", proposal.Version, err)
		}
	}

	r.logger.Info("vocabulary revised", "version", proposal.Version)
	return proposal, nil
}

// Rollback re-publishes a prior snapshot's mapping as a new version on top
// of the current one, then rewrites stored items against it. The history
// stays append-only: rolling back never deletes the snapshots in between.
func (r *Review) Rollback(ctx context.Context, version string) (domain.Snapshot, error) {
	prior, err := r.vocabulary.ByVersion(ctx, version)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot %s: %w", version, err)
	}

	var restored domain.Snapshot
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		current, err := r.vocabulary.Current(ctx)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("load current vocabulary: %w", err)
		}
		if current.Version == version {
			return current, nil
		}

		restored = domain.Snapshot{
			Version:     uuid.NewString(),
			BaseVersion: current.Version,
			CreatedAt:   time.Now().UTC(),
			Mapping:     prior.Mapping,
			Canonical:   prior.Canonical,
		}

		err = r.vocabulary.Commit(ctx, restored)
		if err == nil {
			break
		}
		if errors.Is(err, taxonomy.ErrStaleBaseVersion) && attempt < commitAttempts {
			r.logger.Warn("vocabulary advanced underneath rollback, retrying", "attempt", attempt)
			continue
		}
		return domain.Snapshot{}, fmt.Errorf("commit rollback: %w", err)
	}

	if r.backfill != nil {
		if err := r.backfill.Run(ctx, restored); err != nil {
			return restored, fmt.Errorf("backfill against %s: %w", restored.Version, err)
		}
	}

	r.logger.Info("vocabulary rolled back", "to", version, "version", restored.Version)
	return restored, nil
}

// Stats reports the current vocabulary summary for operators.
func (r *Review) Stats(ctx context.Context) (domain.VocabularyStats, error) {
	return r.vocabulary.Stats(ctx)
}

// UnmappedSample returns up to limit of the most frequent raw tags the
// current vocabulary does not map yet, so operators can see what the next
// review will face.
func (r *Review) UnmappedSample(ctx context.Context, limit int) ([]domain.RawTagStat, error) {
	current, err := r.vocabulary.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current vocabulary: %w", err)
	}
	corpus, err := r.tagLog.Corpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("load raw tag corpus: %w", err)
	}

	var unmapped []domain.RawTagStat
	for _, stat := range corpus {
		if _, ok := current.Targets(taxonomy.Fold(stat.Name)); ok {
			continue
		}
		unmapped = append(unmapped, stat)
	}

	sort.Slice(unmapped, func(i, j int) bool {
		if unmapped[i].Frequency != unmapped[j].Frequency {
			return unmapped[i].Frequency > unmapped[j].Frequency
		}
		return unmapped[i].Name < unmapped[j].Name
	})
	if limit > 0 && len(unmapped) > limit {
		unmapped = unmapped[:limit]
	}
	return unmapped, nil
}
