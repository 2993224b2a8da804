package taxonomy

// Similarity is the concrete near-duplicate measure used by the reviewer:
// Jaccard overlap of character trigrams over folded strings. Strings shorter
// than three runes only match exactly. The measure is symmetric and returns a
// value in [0,1].
func Similarity(a, b string) float64 {
	a, b = Fold(a), Fold(b)
	if a == b {
		return 1
	}

	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for g := range ta {
		if tb[g] {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func trigrams(s string) map[string]bool {
	runes := []rune(s)
	if len(runes) < 3 {
		return nil
	}

	set := make(map[string]bool, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}
