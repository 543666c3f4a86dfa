package chat

import (
	"strings"
	"unicode/utf8"
)

// Truncate bounds a reply to the surface's character limit. It prefers
// cutting at a paragraph break, then a sentence end, then a word
// boundary, hard-cutting otherwise; a boundary is used only when it keeps
// at least 70% of the available span, so an early break never guts the
// reply. Truncated output always ends with the marker and never exceeds
// the limit.
func Truncate(text, marker string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	if len(marker) >= limit {
		// Degenerate config; the length contract still holds.
		return hardCut(text, limit)
	}

	cut := hardCut(text, limit-len(marker))
	floor := len(cut) * 7 / 10

	if idx := strings.LastIndex(cut, "\n\n"); idx >= floor {
		return strings.TrimRight(cut[:idx], " \n") + marker
	}
	if idx := lastSentenceEnd(cut); idx >= floor {
		return cut[:idx] + marker
	}
	if idx := strings.LastIndexAny(cut, " \n"); idx >= floor {
		return cut[:idx] + marker
	}
	return cut + marker
}

// lastSentenceEnd returns the index just past the last sentence-ending
// punctuation followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	best := -1
	for _, sep := range []string{". ", ".\n", "! ", "!\n", "? ", "?\n"} {
		if idx := strings.LastIndex(s, sep); idx+1 > best {
			best = idx + 1
		}
	}
	if best <= 0 {
		return -1
	}
	return best
}

// hardCut shortens to at most n bytes without splitting a rune.
func hardCut(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
