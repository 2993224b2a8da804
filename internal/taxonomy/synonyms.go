package taxonomy

import "strings"

// SynonymTable canonicalizes lexical variants of established core-category
// terms: abbreviations, plurals, hyphenation and punctuation variants all
// resolve to one standardized spelling.
type SynonymTable struct {
	byVariant map[string]string
}

// NewSynonymTable builds a table from canonical spelling -> variants. The
// canonical spelling always resolves to itself.
func NewSynonymTable(groups map[string][]string) *SynonymTable {
	t := &SynonymTable{byVariant: make(map[string]string)}
	for canonical, variants := range groups {
		canonical = Fold(canonical)
		t.byVariant[foldKey(canonical)] = canonical
		for _, v := range variants {
			t.byVariant[foldKey(v)] = canonical
		}
	}
	return t
}

// Merge folds another table's groups into this one, overriding on conflict.
func (t *SynonymTable) Merge(groups map[string][]string) {
	for canonical, variants := range groups {
		canonical = Fold(canonical)
		t.byVariant[foldKey(canonical)] = canonical
		for _, v := range variants {
			t.byVariant[foldKey(v)] = canonical
		}
	}
}

// Resolve returns the standardized spelling for a raw tag, trying the folded
// form, its punctuation-stripped key and a naive singular.
func (t *SynonymTable) Resolve(tag string) (string, bool) {
	key := foldKey(tag)
	if canonical, ok := t.byVariant[key]; ok {
		return canonical, true
	}
	if singular, ok := strings.CutSuffix(key, "s"); ok {
		if canonical, ok := t.byVariant[singular]; ok {
			return canonical, true
		}
	}
	return "", false
}

// DefaultSynonymTable holds the maintained variants of the core vocabulary.
func DefaultSynonymTable() *SynonymTable {
	return NewSynonymTable(map[string][]string{
		"artificial intelligence": {"ai", "a.i."},
		"machine learning":        {"ml"},
		"large language models":   {"llm", "llms", "large language model"},
		"generative ai":           {"genai", "gen ai", "generative artificial intelligence"},
		"natural language processing": {"nlp"},
		"computer vision":             {"cv"},
		"cybersecurity":               {"cyber security", "infosec", "information security"},
		"deep learning":               {"dl", "deep neural networks"},
		"reinforcement learning":      {"rl"},
	})
}
