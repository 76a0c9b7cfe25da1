// Package strings provides display-text helpers shared by the CLI
// renderers. Table cells and the shell prompt both need bounded,
// single-line strings; user-authored content (job titles, headlines)
// routinely contains newlines and multi-byte characters.
package strings

import (
	"strings"
)

// MinTruncateLen is the minimum honored maxLen. Smaller values would
// not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// TruncateCell bounds a string for a single table cell. It replaces
// newlines with spaces, collapses whitespace runs into single spaces,
// and adds "..." if truncated.
//
// The function operates on runes rather than bytes, so truncation
// never splits a multi-byte character.
//
// If maxLen is less than MinTruncateLen (4), it is clamped to
// MinTruncateLen to ensure there is room for at least one character
// plus "...".
func TruncateCell(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	// strings.Fields splits on any whitespace (\n, \r, \t, repeated
	// spaces); rejoining yields the single-line cell form.
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncateMiddle bounds a string by replacing its middle with "...",
// preserving both ends. Used where the distinguishing part may sit at
// either end, such as email identities in the shell prompt: the start
// of the local part and the end of the domain survive.
//
// More of the start (60%) than the end (40%) is kept. maxLen below
// MinTruncateLen is clamped the same way as TruncateCell.
func TruncateMiddle(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	ellipsis := "..."
	available := maxLen - len(ellipsis)
	startLen := (available * 3) / 5
	endLen := available - startLen

	return string(runes[:startLen]) + ellipsis + string(runes[len(runes)-endLen:])
}
