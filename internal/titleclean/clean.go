package titleclean

import (
	"regexp"
	"strings"

	"filmdex/pkg/models"
)

// Separator is the field separator channels use inside upload titles,
// e.g. "Kung Fu Traveler (2017) FULL MOVIE | Dennis To Sci-Fi Action".
const Separator = "|"

// Patterns below a certain confidence are not trusted to pick a single
// segment; we hedge with both ends instead.
const positionTrustThreshold = 0.7

var (
	bracketRe   = regexp.MustCompile(`\[[^\]]*\]`)
	marketingRe = regexp.MustCompile(`(?i)\b(full movie|complete film|full film|feature film)\b`)
	qualityRe   = regexp.MustCompile(`(?i)\b(hd|fhd|uhd|4k|8k|\d{3,4}p|blu-?ray|dvd|vhs)\b`)
	adjectiveRe = regexp.MustCompile(`(?i)\b(official|original|remastered|restored)\b`)
	danglingRe  = regexp.MustCompile(`[\s|:\-–—]+$`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Clean extracts the shortest plausible bare work title from a raw,
// metadata-laden upload title. pattern is an advisory hint and may be nil;
// a pattern that contradicts the literal structure of the raw title is
// replaced with a low-confidence fallback rather than followed.
//
// Pure function: no side effects, never fails. An empty or all-noise input
// yields an empty string.
func Clean(raw string, pattern *models.ChannelTitlePattern) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Sanity override: a pattern claiming "no separator" is stale the moment
	// the title literally contains one. Fall back to a weak first-segment
	// guess instead of trusting it.
	if pattern != nil && !pattern.HasSeparator && strings.Contains(raw, Separator) {
		pattern = &models.ChannelTitlePattern{
			HasSeparator: true,
			Position:     models.TitleFirst,
			Confidence:   0.6,
		}
	}

	candidates := extractCandidates(raw, pattern)

	// Shortest non-empty cleaned candidate wins; marketing noise inflates
	// length, so the most concise string is the best guess at the bare
	// title. Ties keep the first-encountered candidate. A candidate that
	// cleans to nothing was pure noise and only wins when every candidate
	// was.
	best := ""
	for _, c := range candidates {
		cleaned := stripNoise(c)
		if cleaned == "" {
			continue
		}
		if best == "" || len(cleaned) < len(best) {
			best = cleaned
		}
	}
	return best
}

// extractCandidates splits the raw title on the separator and picks which
// segments are plausible work titles. Low-confidence or absent patterns
// hedge with both the first and last segment.
func extractCandidates(raw string, pattern *models.ChannelTitlePattern) []string {
	if !strings.Contains(raw, Separator) {
		return []string{raw}
	}

	var segments []string
	for _, s := range strings.Split(raw, Separator) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return []string{""}
	}

	first := segments[0]
	last := segments[len(segments)-1]

	if pattern != nil && pattern.HasSeparator {
		if pattern.Position != models.TitleEither && pattern.Confidence >= positionTrustThreshold {
			if pattern.Position == models.TitleLast {
				return []string{last}
			}
			return []string{first}
		}
	}

	// No usable position: hedge with both ends.
	if len(segments) > 1 {
		return []string{first, last}
	}
	return []string{first}
}

// stripNoise removes marketing phrases, bracketed annotations, quality and
// format tokens, and authenticity adjectives, then tidies whitespace.
// Parenthesized release years are deliberately left alone; they carry
// disambiguating signal for remakes.
func stripNoise(s string) string {
	s = bracketRe.ReplaceAllString(s, " ")
	s = marketingRe.ReplaceAllString(s, " ")
	s = qualityRe.ReplaceAllString(s, " ")
	s = adjectiveRe.ReplaceAllString(s, " ")
	s = danglingRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
