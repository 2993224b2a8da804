package taxonomy

import (
	"reflect"
	"testing"

	"NewsDigest/internal/domain"
)

func corpusOf(names ...string) []domain.RawTagStat {
	stats := make([]domain.RawTagStat, 0, len(names))
	for i, name := range names {
		stats = append(stats, domain.RawTagStat{Name: name, Frequency: int64(len(names) - i)})
	}
	return stats
}

func TestProposeSynonymConvergence(t *testing.T) {
	t.Parallel()

	r := NewReviewer(ReviewerConfig{})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("ai", "A.I.", "  AI  ", "machine-learning"))

	for _, raw := range []string{"ai", "a.i."} {
		targets, ok := proposal.Targets(raw)
		if !ok {
			t.Fatalf("raw tag %q missing from proposal", raw)
		}
		if !reflect.DeepEqual(targets, []string{"artificial intelligence"}) {
			t.Fatalf("raw tag %q resolved to %v", raw, targets)
		}
	}

	targets, _ := proposal.Targets("machine-learning")
	if !reflect.DeepEqual(targets, []string{"machine learning"}) {
		t.Fatalf("hyphen variant resolved to %v", targets)
	}

	if !proposal.Canonical["artificial intelligence"] {
		t.Fatalf("synonym target missing from canonical set")
	}
	if proposal.Canonical["ai"] {
		t.Fatalf("abbreviation leaked into the canonical set")
	}
}

func TestProposeSplitsCompounds(t *testing.T) {
	t.Parallel()

	r := NewReviewer(ReviewerConfig{})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("ai in agriculture"))

	targets, ok := proposal.Targets("ai in agriculture")
	if !ok {
		t.Fatalf("compound missing from proposal")
	}
	want := []string{"artificial intelligence", "agriculture"}
	if !reflect.DeepEqual(targets, want) {
		t.Fatalf("expected split %v, got %v", want, targets)
	}

	for _, facet := range want {
		if !proposal.Canonical[facet] {
			t.Fatalf("split facet %q not introduced as canonical", facet)
		}
	}

	if len(proposal.Changes.Split) != 1 || proposal.Changes.Split[0].From != "ai in agriculture" {
		t.Fatalf("split not recorded in change-set: %+v", proposal.Changes)
	}
}

func TestProposeMergesNearDuplicates(t *testing.T) {
	t.Parallel()

	r := NewReviewer(ReviewerConfig{})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("neural networks", "neural network"))

	targets, _ := proposal.Targets("neural network")
	if !reflect.DeepEqual(targets, []string{"neural networks"}) {
		t.Fatalf("near-duplicate not merged: %v", targets)
	}
	if proposal.Canonical["neural network"] {
		t.Fatalf("near-duplicate became its own canonical tag")
	}
}

func TestProposeRespectsSpecificityFloor(t *testing.T) {
	t.Parallel()

	// Industry and product are distinct axes: however close the strings get,
	// these two must stay separate tags.
	r := NewReviewer(ReviewerConfig{SimilarityThreshold: 0.1})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("healthcare", "health tech"))

	targets, _ := proposal.Targets("health tech")
	if !reflect.DeepEqual(targets, []string{"health tech"}) {
		t.Fatalf("cross-axis merge happened: %v", targets)
	}
	if !proposal.Canonical["healthcare"] || !proposal.Canonical["health tech"] {
		t.Fatalf("expected both axis terms canonical: %v", proposal.Canonical)
	}
}

func TestProposeIdentityForNewConcepts(t *testing.T) {
	t.Parallel()

	r := NewReviewer(ReviewerConfig{})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("webassembly"))

	targets, _ := proposal.Targets("webassembly")
	if !reflect.DeepEqual(targets, []string{"webassembly"}) {
		t.Fatalf("new concept not identity-mapped: %v", targets)
	}

	found := false
	for _, added := range proposal.Changes.Added {
		if added == "webassembly" {
			found = true
		}
	}
	if !found {
		t.Fatalf("new canonical tag missing from added change-set: %v", proposal.Changes.Added)
	}
}

func TestProposeStoplistDiscardIsAudited(t *testing.T) {
	t.Parallel()

	r := NewReviewer(ReviewerConfig{Stoplist: []string{"misc"}})
	proposal := r.Propose(domain.Snapshot{Version: "v0"}, corpusOf("misc", "ai"))

	targets, ok := proposal.Targets("misc")
	if !ok || len(targets) != 0 {
		t.Fatalf("stoplisted tag should map to zero targets, got %v (known=%v)", targets, ok)
	}

	if len(proposal.Changes.Discarded) != 1 {
		t.Fatalf("discard not recorded: %+v", proposal.Changes)
	}
	d := proposal.Changes.Discarded[0]
	if d.Name != "misc" || d.Reason == "" {
		t.Fatalf("discard entry must carry name and reason: %+v", d)
	}
}

func TestProposeKeepsPreviouslyMappedTags(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{
		Version: "v1",
		Mapping: map[string][]string{
			"golang": {"go"},
			"go":     {"go"},
		},
		Canonical: map[string]bool{"go": true},
	}

	r := NewReviewer(ReviewerConfig{})
	proposal := r.Propose(current, corpusOf("ai"))

	if _, ok := proposal.Targets("golang"); !ok {
		t.Fatalf("previously mapped raw tag dropped from proposal")
	}
	if proposal.BaseVersion != "v1" {
		t.Fatalf("proposal base version %q, want v1", proposal.BaseVersion)
	}
}

func TestProposeDeterministic(t *testing.T) {
	t.Parallel()

	corpus := corpusOf("ai", "ml", "health tech", "healthcare", "llms", "edge computing", "edge compute")
	r := NewReviewer(ReviewerConfig{})

	first := r.Propose(domain.Snapshot{Version: "v0"}, corpus)
	second := r.Propose(domain.Snapshot{Version: "v0"}, corpus)

	if !reflect.DeepEqual(first.Mapping, second.Mapping) {
		t.Fatalf("reviewer is not deterministic:\n%v\nvs\n%v", first.Mapping, second.Mapping)
	}
}
