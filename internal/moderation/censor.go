// Package moderation filters user-written text before it is stored.
package moderation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultWords is used when no word list is configured.
var DefaultWords = []string{"damn", "hell", "crap", "idiot", "stupid"}

// Censor masks whole-word matches of a fixed word list, case-insensitively.
// The zero value and a nil *Censor pass text through unchanged.
type Censor struct {
	pattern *regexp.Regexp
}

// NewCensor compiles words into a single alternation. Blank entries are skipped.
func NewCensor(words []string) *Censor {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, regexp.QuoteMeta(strings.ToLower(w)))
		}
	}
	if len(cleaned) == 0 {
		return &Censor{}
	}
	// Longest first so overlapping entries mask the larger word.
	sort.Slice(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	return &Censor{pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(cleaned, "|") + `)\b`)}
}

// ParseWords splits a comma separated list, as found in configuration.
func ParseWords(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return strings.Split(list, ",")
}

// Clean replaces every listed word with asterisks of the same length.
func (c *Censor) Clean(text string) string {
	if c == nil || c.pattern == nil {
		return text
	}
	return c.pattern.ReplaceAllStringFunc(text, func(word string) string {
		return strings.Repeat("*", utf8.RuneCountInString(word))
	})
}

// Flagged reports whether text contains a listed word.
func (c *Censor) Flagged(text string) bool {
	return c != nil && c.pattern != nil && c.pattern.MatchString(text)
}
