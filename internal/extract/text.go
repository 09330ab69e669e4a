// Package extract turns fetched HTML into structured article content, via
// a readability heuristic with an Open Graph metadata fallback.
package extract

import "strings"

// Ellipsis marks truncated text in excerpts and bounded bodies.
const Ellipsis = "…"

// wordBoundaryFraction is how far into the budget a space must appear for
// word-boundary truncation to be preferred over a hard cut.
const wordBoundaryFraction = 0.8

// TruncateAtWord shortens s to at most limit characters (runes), preferring
// to cut at a word boundary. A hard cut is used only when no space exists
// within the last 20% of the budget. Truncated output ends with an ellipsis.
func TruncateAtWord(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := runes[:limit]

	boundary := -1

	for i := limit - 1; i >= 0; i-- {
		if cut[i] == ' ' {
			boundary = i
			break
		}
	}

	if boundary >= int(float64(limit)*wordBoundaryFraction) {
		return strings.TrimRight(string(cut[:boundary]), " .,;:!?") + Ellipsis
	}

	return string(cut) + Ellipsis
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
