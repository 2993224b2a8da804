package taxonomy

import (
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
)

// Validator enforces the structural and semantic invariants a proposed
// snapshot must satisfy before the store will accept it. A proposal is
// accepted or rejected as a whole.
type Validator struct {
	axes *AxisTable
}

// NewValidator builds a validator; a nil table falls back to the default.
func NewValidator(axes *AxisTable) *Validator {
	if axes == nil {
		axes = DefaultAxisTable()
	}
	return &Validator{axes: axes}
}

// Validate checks a proposal against the current snapshot and the raw-tag
// corpus. On rejection the returned *InvalidMappingError lists every violated
// invariant with the offending entries.
func (v *Validator) Validate(current, proposal domain.Snapshot, corpus []domain.RawTagStat) error {
	var violations []Violation

	if proposal.BaseVersion != current.Version {
		violations = append(violations, Violation{
			Invariant: "base version",
			Entry:     proposal.BaseVersion,
			Detail:    fmt.Sprintf("proposal built against %q but current is %q", proposal.BaseVersion, current.Version),
		})
	}

	violations = append(violations, v.checkCanonicalNames(proposal)...)
	violations = append(violations, v.checkTargets(proposal)...)
	violations = append(violations, v.checkChains(proposal)...)
	violations = append(violations, v.checkDiscards(proposal)...)
	violations = append(violations, v.checkCoverage(current, proposal, corpus)...)
	violations = append(violations, v.checkAxisMerges(proposal)...)

	if len(violations) > 0 {
		return &InvalidMappingError{Violations: violations}
	}
	return nil
}

// Canonical names must be lowercase, trimmed, non-empty and semantically
// atomic: compound patterns belong in the mapping as splits, never in the
// vocabulary itself.
func (v *Validator) checkCanonicalNames(proposal domain.Snapshot) []Violation {
	var out []Violation
	for name := range proposal.Canonical {
		if name == "" {
			out = append(out, Violation{Invariant: "canonical name", Entry: name, Detail: "empty canonical tag"})
			continue
		}
		if name != Fold(name) {
			out = append(out, Violation{Invariant: "canonical name", Entry: name, Detail: "not folded (lowercase, trimmed, single spaces)"})
		}
		for _, sep := range compoundSeps {
			if strings.Contains(name, sep) {
				out = append(out, Violation{Invariant: "canonical name", Entry: name, Detail: fmt.Sprintf("compound pattern %q must be split", sep)})
			}
		}
	}
	return out
}

// Every mapping target must be a canonical tag of the same proposal.
func (v *Validator) checkTargets(proposal domain.Snapshot) []Violation {
	var out []Violation
	for raw, targets := range proposal.Mapping {
		for _, target := range targets {
			if !proposal.Canonical[target] {
				out = append(out, Violation{
					Invariant: "dangling target",
					Entry:     raw,
					Detail:    fmt.Sprintf("target %q is not in the canonical vocabulary", target),
				})
			}
		}
	}
	return out
}

// A canonical tag must map to itself: a canonical that is itself remapped
// elsewhere forms a silent chain raw -> canonical -> canonical.
func (v *Validator) checkChains(proposal domain.Snapshot) []Violation {
	var out []Violation
	for raw, targets := range proposal.Mapping {
		for _, target := range targets {
			onward, ok := proposal.Mapping[target]
			if !ok {
				continue
			}
			if len(onward) == 1 && onward[0] == target {
				continue
			}
			out = append(out, Violation{
				Invariant: "mapping chain",
				Entry:     raw,
				Detail:    fmt.Sprintf("target %q is itself remapped to %v", target, onward),
			})
		}
	}
	return out
}

// Zero-target entries are deliberate discards and must be auditable: listed
// in the change-set with a non-empty reason.
func (v *Validator) checkDiscards(proposal domain.Snapshot) []Violation {
	var out []Violation

	reasons := make(map[string]string, len(proposal.Changes.Discarded))
	for _, d := range proposal.Changes.Discarded {
		reasons[d.Name] = d.Reason
	}

	for raw, targets := range proposal.Mapping {
		if len(targets) > 0 {
			continue
		}
		reason, listed := reasons[raw]
		if !listed {
			out = append(out, Violation{Invariant: "silent discard", Entry: raw, Detail: "zero targets but absent from the discard change-set"})
			continue
		}
		if strings.TrimSpace(reason) == "" {
			out = append(out, Violation{Invariant: "silent discard", Entry: raw, Detail: "discard listed without a reason"})
		}
	}
	return out
}

// No information loss: every raw tag with nonzero historical frequency that
// the current snapshot maps must stay mapped, or appear under discarded.
func (v *Validator) checkCoverage(current, proposal domain.Snapshot, corpus []domain.RawTagStat) []Violation {
	var out []Violation

	discarded := make(map[string]bool, len(proposal.Changes.Discarded))
	for _, d := range proposal.Changes.Discarded {
		discarded[d.Name] = true
	}

	for _, stat := range corpus {
		if stat.Frequency == 0 {
			continue
		}
		folded := Fold(stat.Name)
		if folded == "" {
			continue
		}
		if _, was := current.Mapping[folded]; !was {
			continue
		}
		if targets, ok := proposal.Mapping[folded]; ok && len(targets) > 0 {
			continue
		}
		if discarded[folded] {
			continue
		}
		out = append(out, Violation{
			Invariant: "information loss",
			Entry:     folded,
			Detail:    fmt.Sprintf("previously mapped raw tag (frequency %d) lost without a discard entry", stat.Frequency),
		})
	}
	return out
}

// Specificity floor: a merge is rejected when source and target sit on known,
// different filtering axes.
func (v *Validator) checkAxisMerges(proposal domain.Snapshot) []Violation {
	var out []Violation
	for _, merge := range proposal.Changes.Merged {
		if v.axes.Mergeable(merge.From, merge.To) {
			continue
		}
		fromAxis, _ := v.axes.Axis(merge.From)
		toAxis, _ := v.axes.Axis(merge.To)
		out = append(out, Violation{
			Invariant: "cross-axis merge",
			Entry:     merge.From,
			Detail:    fmt.Sprintf("%s (%s) must not collapse into %q (%s)", merge.From, fromAxis, merge.To, toAxis),
		})
	}
	return out
}
