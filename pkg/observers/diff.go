package observers

import (
	"regexp"
	"strings"
)

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
)

// setDiff returns the items of next missing from prev (added) and the items
// of prev missing from next (removed), each in the order of its source list
func setDiff[T comparable](prev, next []T) (added, removed []T) {
	inPrev := make(map[T]bool, len(prev))
	for _, v := range prev {
		inPrev[v] = true
	}
	inNext := make(map[T]bool, len(next))
	for _, v := range next {
		inNext[v] = true
	}

	added = []T{}
	removed = []T{}
	seen := make(map[T]bool, len(next))
	for _, v := range next {
		if !inPrev[v] && !seen[v] {
			added = append(added, v)
		}
		seen[v] = true
	}
	seen = make(map[T]bool, len(prev))
	for _, v := range prev {
		if !inNext[v] && !seen[v] {
			removed = append(removed, v)
		}
		seen[v] = true
	}
	return added, removed
}

// firstSentence returns the text up to the first full stop or line break,
// skipping leading ones, with markup removed
func firstSentence(s string) string {
	s = strings.TrimLeft(s, ".\r\n")
	if i := strings.IndexAny(s, ".\r\n"); i >= 0 {
		s = s[:i]
	}
	return stripTags(s)
}

// stripTags removes HTML tags, dropping script and style bodies entirely
func stripTags(s string) string {
	s = scriptStylePattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
