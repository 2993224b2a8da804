package taxonomy

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

const defaultSimilarityThreshold = 0.6

// compound separators the splitter recognizes, checked in order.
var compoundSeps = []string{" in ", " for "}

// ReviewerConfig tunes the batch taxonomy review. Zero values fall back to
// the defaults documented on each field.
type ReviewerConfig struct {
	// Synonyms extends DefaultSynonymTable with canonical -> variants groups.
	Synonyms map[string][]string
	// Axes replaces DefaultAxisTable when non-nil.
	Axes *AxisTable
	// Stoplist lists raw tags to discard as noise. Every discard it causes is
	// recorded in the change-set with a reason.
	Stoplist []string
	// SimilarityThreshold is the minimum trigram similarity for a
	// near-duplicate merge; defaults to 0.6.
	SimilarityThreshold float64
}

// Reviewer analyzes the accumulated raw-tag corpus and proposes a complete
// replacement vocabulary snapshot. It never commits anything itself: the
// proposal goes through the Validator and the store's optimistic commit.
type Reviewer struct {
	synonyms  *SynonymTable
	axes      *AxisTable
	stoplist  map[string]bool
	threshold float64
}

// NewReviewer builds a reviewer from config, filling defaults.
func NewReviewer(cfg ReviewerConfig) *Reviewer {
	synonyms := DefaultSynonymTable()
	if cfg.Synonyms != nil {
		synonyms.Merge(cfg.Synonyms)
	}

	axes := cfg.Axes
	if axes == nil {
		axes = DefaultAxisTable()
	}

	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}

	stoplist := make(map[string]bool, len(cfg.Stoplist))
	for _, s := range cfg.Stoplist {
		stoplist[Fold(s)] = true
	}

	return &Reviewer{
		synonyms:  synonyms,
		axes:      axes,
		stoplist:  stoplist,
		threshold: threshold,
	}
}

// Propose builds a complete proposed snapshot from the current vocabulary and
// the deduplicated raw-tag corpus. Rules apply in fixed order: fold, synonym
// canonicalization, compound split, near-duplicate merge guarded by the
// specificity floor, then identity for genuinely new concepts. Deterministic:
// the same inputs always produce the same mapping.
func (r *Reviewer) Propose(current domain.Snapshot, corpus []domain.RawTagStat) domain.Snapshot {
	freq := make(map[string]int64)
	for _, stat := range corpus {
		folded := Fold(stat.Name)
		if folded == "" {
			continue
		}
		freq[folded] += stat.Frequency
	}
	for raw := range current.Mapping {
		if _, ok := freq[raw]; !ok {
			freq[raw] = 0
		}
	}
	for name := range current.Canonical {
		if _, ok := freq[name]; !ok {
			freq[name] = 0
		}
	}

	names := make([]string, 0, len(freq))
	for name := range freq {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if freq[names[i]] != freq[names[j]] {
			return freq[names[i]] > freq[names[j]]
		}
		return names[i] < names[j]
	})

	mapping := make(map[string][]string, len(names))
	canonical := make(map[string]bool)
	discards := make(map[string]string)
	var unresolved []string

	// Synonym and split rules do not depend on the canonical set being built,
	// so they run first and seed it. Raw tags the current snapshot already
	// maps keep their targets unless those rules supersede them: an accepted
	// decision is never silently forgotten.
	for _, name := range names {
		if r.stoplist[name] {
			mapping[name] = nil
			discards[name] = "stoplisted as noise"
			continue
		}

		if target, ok := r.synonyms.Resolve(name); ok {
			mapping[name] = []string{target}
			canonical[target] = true
			continue
		}

		if parts := r.splitCompound(name); len(parts) > 1 {
			mapping[name] = parts
			for _, p := range parts {
				canonical[p] = true
			}
			continue
		}

		if targets, ok := current.Mapping[name]; ok {
			carried := append([]string(nil), targets...)
			mapping[name] = carried
			for _, t := range carried {
				canonical[t] = true
			}
			continue
		}

		unresolved = append(unresolved, name)
	}

	// Remaining tags merge onto a sufficiently similar canonical tag on a
	// compatible axis, or become canonical themselves. Frequency order makes
	// common spellings canonical before their rarer variants arrive.
	for _, name := range unresolved {
		if target, ok := r.nearestCanonical(name, canonical); ok {
			mapping[name] = []string{target}
			continue
		}
		mapping[name] = []string{name}
		canonical[name] = true
	}

	// Carried-over targets may themselves have been remapped by this proposal
	// (an old canonical demoted to a synonym variant). Flatten those chains so
	// a raw tag always resolves in one hop, then rebuild the canonical set
	// from the final targets.
	for name, targets := range mapping {
		mapping[name] = flatten(targets, mapping)
	}

	canonical = make(map[string]bool)
	for _, targets := range mapping {
		for _, t := range targets {
			canonical[t] = true
		}
	}
	for name := range canonical {
		if _, ok := mapping[name]; !ok {
			mapping[name] = []string{name}
		}
	}

	for name, targets := range mapping {
		if len(targets) == 0 {
			if _, ok := discards[name]; !ok {
				discards[name] = "all canonical targets were discarded"
			}
		}
	}

	proposal := domain.Snapshot{
		Version:     uuid.NewString(),
		BaseVersion: current.Version,
		CreatedAt:   time.Now().UTC(),
		Mapping:     mapping,
		Canonical:   canonical,
	}
	proposal.Changes = diffSnapshots(current, proposal, discards)
	return proposal
}

// splitCompound decomposes a raw tag naming two orthogonal concepts. To keep
// splits safe it only fires when the left side resolves through the synonym
// table to an established term; the right side is kept as its own facet,
// synonym-resolved when possible.
func (r *Reviewer) splitCompound(name string) []string {
	for _, sep := range compoundSeps {
		left, right, ok := strings.Cut(name, sep)
		if !ok || left == "" || right == "" {
			continue
		}

		leftTarget, resolved := r.synonyms.Resolve(left)
		if !resolved {
			continue
		}

		rightTarget, ok := r.synonyms.Resolve(right)
		if !ok {
			rightTarget = right
		}
		if rightTarget == leftTarget {
			return []string{leftTarget}
		}
		return []string{leftTarget, rightTarget}
	}
	return nil
}

// nearestCanonical finds the best near-duplicate merge target, honoring the
// specificity floor: candidates on a different known axis are skipped even
// when the strings are close.
func (r *Reviewer) nearestCanonical(name string, canonical map[string]bool) (string, bool) {
	best := ""
	bestScore := 0.0
	for candidate := range canonical {
		if !r.axes.Mergeable(name, candidate) {
			continue
		}
		score := Similarity(name, candidate)
		if score > bestScore || (score == bestScore && candidate < best) {
			best, bestScore = candidate, score
		}
	}
	if bestScore >= r.threshold {
		return best, true
	}
	return "", false
}

// diffSnapshots derives the audit change-set between two snapshots.
func diffSnapshots(current, proposal domain.Snapshot, discards map[string]string) domain.ChangeSet {
	var changes domain.ChangeSet

	added := make([]string, 0)
	for name := range proposal.Canonical {
		if !current.Canonical[name] {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	changes.Added = added

	names := make([]string, 0, len(proposal.Mapping))
	for name := range proposal.Mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		targets := proposal.Mapping[name]
		if sameTargets(current.Mapping[name], targets) {
			if _, was := current.Mapping[name]; was {
				continue
			}
		}

		switch {
		case len(targets) == 0:
			reason := discards[name]
			if reason == "" {
				reason = "discarded by reviewer"
			}
			changes.Discarded = append(changes.Discarded, domain.DiscardChange{Name: name, Reason: reason})
		case len(targets) > 1:
			changes.Split = append(changes.Split, domain.SplitChange{From: name, To: targets})
		case targets[0] != name:
			changes.Merged = append(changes.Merged, domain.MergeChange{From: name, To: targets[0]})
		}
	}

	return changes
}

// flatten resolves a single level of indirection: a target that is itself
// remapped is replaced by its own targets, deduplicated in order.
func flatten(targets []string, mapping map[string][]string) []string {
	out := make([]string, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	for _, t := range targets {
		onward, ok := mapping[t]
		if !ok || (len(onward) == 1 && onward[0] == t) {
			add(t)
			continue
		}
		for _, o := range onward {
			add(o)
		}
	}
	return out
}

func sameTargets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
