package util

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Normalize folds full-width ASCII (１２Ｒ) to half-width, lowercases and trims.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

// CellText strips newlines the way table cells are flattened.
func CellText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}

// FirstMatch returns the first match of pattern in s or def.
func FirstMatch(pattern *regexp.Regexp, s, def string) string {
	if m := pattern.FindString(s); m != "" {
		return m
	}
	return def
}

// FirstNumber extracts the first run of digits in s ("/horse/2019104308/" -> "2019104308").
func FirstNumber(s string) string {
	return digitsPattern.FindString(s)
}

// Atoi parses a possibly padded or full-width number, returning def on failure.
func Atoi(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(width.Fold.String(s)))
	if err != nil {
		return def
	}
	return n
}

// Contains checks if a string slice contains a specific item
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
