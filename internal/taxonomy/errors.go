package taxonomy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRawTag marks a raw tag rejected at ingestion: empty string or a
// score outside [0,1]. The item's remaining tags are still processed.
var ErrInvalidRawTag = errors.New("invalid raw tag")

// ErrStaleBaseVersion is returned by a vocabulary commit whose proposal was
// built against a version that is no longer current.
var ErrStaleBaseVersion = errors.New("stale base version")

// Violation names one invariant broken by a proposed mapping.
type Violation struct {
	Invariant string
	Entry     string
	Detail    string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %q: %s", v.Invariant, v.Entry, v.Detail)
}

// InvalidMappingError rejects a proposal in full, listing every violation so
// the reviewer can revise and resubmit. Nothing is partially applied.
type InvalidMappingError struct {
	Violations []Violation
}

func (e *InvalidMappingError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid mapping (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}
