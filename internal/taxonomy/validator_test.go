package taxonomy

import (
	"errors"
	"testing"
	"time"

	"NewsDigest/internal/domain"
)

func validProposal(base domain.Snapshot) domain.Snapshot {
	return domain.Snapshot{
		Version:     "v2",
		BaseVersion: base.Version,
		CreatedAt:   time.Now().UTC(),
		Mapping: map[string][]string{
			"artificial intelligence": {"artificial intelligence"},
			"ai":                      {"artificial intelligence"},
		},
		Canonical: map[string]bool{"artificial intelligence": true},
		Changes: domain.ChangeSet{
			Added:  []string{"artificial intelligence"},
			Merged: []domain.MergeChange{{From: "ai", To: "artificial intelligence"}},
		},
	}
}

func violationsOf(t *testing.T, err error) []Violation {
	t.Helper()
	var invalid *InvalidMappingError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidMappingError, got %v", err)
	}
	return invalid.Violations
}

func hasInvariant(violations []Violation, invariant string) bool {
	for _, v := range violations {
		if v.Invariant == invariant {
			return true
		}
	}
	return false
}

func TestValidateAcceptsCleanProposal(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	if err := NewValidator(nil).Validate(current, validProposal(current), nil); err != nil {
		t.Fatalf("clean proposal rejected: %v", err)
	}
}

func TestValidateRejectsStaleBase(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.BaseVersion = "v0"

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "base version") {
		t.Fatalf("missing base version violation: %v", violations)
	}
}

func TestValidateRejectsMalformedCanonicalNames(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.Canonical["AI In Farming"] = true
	proposal.Canonical["ai in farming"] = true

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "canonical name") {
		t.Fatalf("missing canonical name violation: %v", violations)
	}
}

func TestValidateRejectsDanglingTargets(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.Mapping["rust"] = []string{"systems programming"}

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "dangling target") {
		t.Fatalf("missing dangling target violation: %v", violations)
	}
}

func TestValidateRejectsChains(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.Canonical["ml"] = true
	proposal.Canonical["machine learning"] = true
	proposal.Mapping["ml"] = []string{"machine learning"}
	proposal.Mapping["machine learning"] = []string{"machine learning"}
	proposal.Mapping["neural nets"] = []string{"ml"}

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "mapping chain") {
		t.Fatalf("missing chain violation: %v", violations)
	}
}

func TestValidateRejectsSilentDiscard(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.Mapping["spam"] = nil

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "silent discard") {
		t.Fatalf("missing silent discard violation: %v", violations)
	}

	// The same entry with a reasoned change-set record is fine.
	proposal.Changes.Discarded = []domain.DiscardChange{{Name: "spam", Reason: "promotional noise"}}
	if err := NewValidator(nil).Validate(current, proposal, nil); err != nil {
		t.Fatalf("audited discard rejected: %v", err)
	}
}

func TestValidateRejectsInformationLoss(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{
		Version:   "v1",
		Mapping:   map[string][]string{"golang": {"go"}, "go": {"go"}},
		Canonical: map[string]bool{"go": true},
	}
	proposal := validProposal(current)
	corpus := []domain.RawTagStat{{Name: "golang", Frequency: 12}}

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, corpus))
	if !hasInvariant(violations, "information loss") {
		t.Fatalf("missing information loss violation: %v", violations)
	}
}

func TestValidateRejectsCrossAxisMerge(t *testing.T) {
	t.Parallel()

	current := domain.Snapshot{Version: "v1"}
	proposal := validProposal(current)
	proposal.Canonical["healthcare"] = true
	proposal.Mapping["healthcare"] = []string{"healthcare"}
	proposal.Mapping["health tech"] = []string{"healthcare"}
	proposal.Changes.Merged = append(proposal.Changes.Merged, domain.MergeChange{From: "health tech", To: "healthcare"})

	violations := violationsOf(t, NewValidator(nil).Validate(current, proposal, nil))
	if !hasInvariant(violations, "cross-axis merge") {
		t.Fatalf("missing cross-axis merge violation: %v", violations)
	}
}
