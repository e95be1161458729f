// Package utils provides small text helpers shared across briefly.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeProfession lowercases and collapses whitespace in a raw
// profession string so cache keys and prompts stay stable.
func NormalizeProfession(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Truncate cuts s to at most max runes, appending a marker when content
// was dropped. Used to bound article text before it reaches the LLM.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "... [content truncated]"
}

// CollapseWhitespace replaces runs of whitespace (including newlines)
// with single spaces.
func CollapseWhitespace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Snippet returns the first max runes of s on a single line.
func Snippet(s string, max int) string {
	s = CollapseWhitespace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
