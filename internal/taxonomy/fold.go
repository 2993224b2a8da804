package taxonomy

import "strings"

// Fold applies the unconditional first normalization rule: lowercase, trim,
// collapse internal whitespace. Every other rule operates on folded strings.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// foldKey reduces a folded string further for synonym lookup: punctuation
// variants ("a.i.", "machine-learning") collapse onto their plain spelling.
func foldKey(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", " ")
	return Fold(s)
}
