// Package analyzer contains the transcript annotation pipeline: text
// normalization, keyword-based topic scoring, and per-utterance mood
// annotation backed by external NLP model services.
package analyzer

import (
	"regexp"
	"strings"
)

// bracketed matches timestamp and stage-direction markers like "[00:01]".
var bracketed = regexp.MustCompile(`\[.*?\]`)

// Normalize strips bracketed markers, replaces the Unicode ellipsis with
// three periods, drops the U+FE0F presentation selector left behind by
// emoji, and collapses all whitespace runs to single spaces.
func Normalize(raw string) string {
	text := bracketed.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "…", "...")
	text = strings.ReplaceAll(text, "\ufe0f", "")
	return strings.Join(strings.Fields(text), " ")
}
