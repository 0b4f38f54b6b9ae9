// internal/util/util.go
package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// Preview collapses whitespace runs to single spaces and truncates the result,
// for one-line log and status output.
func Preview(text string, maxRunes int) string {
	return TruncateRunes(strings.Join(strings.Fields(text), " "), maxRunes)
}
