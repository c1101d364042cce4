package similarity

import "strings"

// Trigrams returns the set of letter trigrams of s, with the same padding
// convention trigram indexes use: two leading blanks and one trailing blank
// per word, so short words still produce usable grams.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// Similarity computes trigram similarity between two strings in [0,1]:
// shared grams over total distinct grams. Identical non-empty strings
// score 1.0; strings sharing nothing score 0.
func Similarity(a, b string) float64 {
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}
