package domain

import "time"

// RawTag is a free-text tag exactly as produced by the generative model for
// one content item, paired with a relevance score in [0,1]. Immutable once
// recorded.
type RawTag struct {
	Name  string
	Score float64
}

// TagScore is a canonical (or provisional) tag attached to an item.
// Provisional marks a raw tag that passed through unmapped; it is kept so a
// later vocabulary revision can supersede it without losing the signal.
type TagScore struct {
	Name        string
	Score       float64
	Provisional bool
}

// RawTagStat is one distinct raw tag string across the whole corpus with its
// running frequency and the last item it was seen on.
type RawTagStat struct {
	Name        string
	Frequency   int64
	LastItemRef string
	LastSeen    time.Time
}

// Snapshot is one complete, versioned state of the tag vocabulary: the set of
// canonical tags plus the mapping from every known raw tag to its canonical
// targets. Snapshots are append-only; each one records the version it was
// proposed against.
type Snapshot struct {
	Version     string
	BaseVersion string
	CreatedAt   time.Time
	// Mapping relates a raw tag string to zero or more canonical tags.
	// An empty target list is an explicit discard and must be mirrored in
	// Changes.Discarded.
	Mapping map[string][]string
	// Canonical is the authoritative set of canonical tag names.
	Canonical map[string]bool
	Changes   ChangeSet
}

// Targets returns the canonical targets for a raw tag and whether the raw tag
// is known to this snapshot. Safe for concurrent use: snapshots are read-only
// after construction.
func (s Snapshot) Targets(raw string) ([]string, bool) {
	targets, ok := s.Mapping[raw]
	return targets, ok
}

// ChangeSet records every difference an accepted proposal introduces, for
// audit: nothing is ever dropped from the vocabulary without a trace here.
type ChangeSet struct {
	Added     []string        `json:"added,omitempty"`
	Merged    []MergeChange   `json:"merged,omitempty"`
	Split     []SplitChange   `json:"split,omitempty"`
	Discarded []DiscardChange `json:"discarded,omitempty"`
}

// MergeChange maps one raw tag onto an existing canonical tag.
type MergeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SplitChange decomposes one raw tag into independent canonical facets.
type SplitChange struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// DiscardChange drops a raw tag as noise. Reason is mandatory.
type DiscardChange struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// VocabularyStats summarizes the vocabulary for the administrative interface.
type VocabularyStats struct {
	Version        string
	CanonicalCount int
	MappedRawCount int
}
