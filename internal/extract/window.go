package extract

import (
	"strings"
	"unicode/utf8"
)

// ContextRadius is the number of bytes kept on each side of a match.
const ContextRadius = 50

// windowBounds widens [start, end) by radius and snaps to rune boundaries.
func windowBounds(text string, start, end, radius int) (int, int) {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return lo, hi
}

// contextWindow returns the text around [start, end) with whitespace collapsed.
func contextWindow(text string, start, end, radius int) string {
	lo, hi := windowBounds(text, start, end, radius)
	return collapseSpace(text[lo:hi])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
