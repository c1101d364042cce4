package titleclean

import (
	"strings"
	"unicode"
)

// Normalize converts a title to its canonical comparison form: lowercase,
// punctuation collapsed to single spaces, trimmed. This is the key the
// similarity index and group reconciliation operate on; it is computed once
// when a group is created and stored, never recomputed from the canonical
// title afterwards.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		// treat everything else as space separator
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
