package common

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes returns s cut to at most n runes, trailing space trimmed.
func TruncateRunes(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// CutBytes returns the longest prefix of s that fits in n bytes without
// splitting a rune.
func CutBytes(s string, n int) string {
	if n < 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
