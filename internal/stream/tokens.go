package stream

import (
	"regexp"
	"strings"
)

const previewMaxRunes = 50

var (
	tokenSplitRe = regexp.MustCompile(`[\s.,;:!?'"()\[\]{}-]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CountTokens estimates the token count of accumulated response text by
// splitting on whitespace and common punctuation. It is a display-side
// approximation, not a model tokenizer, and is recomputed from the full
// buffer each time rather than summed incrementally.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, tok := range tokenSplitRe.Split(s, -1) {
		if tok != "" {
			n++
		}
	}
	return n
}

// PreviewText collapses the buffer onto a single line: newlines become
// spaces, whitespace runs shrink to one space, the result is trimmed and
// hard-truncated to 50 runes. No ellipsis is added here; the preview line
// format appends its own " ... (N tokens)" suffix regardless.
func PreviewText(s string) string {
	if s == "" {
		return ""
	}
	flat := strings.ReplaceAll(s, "\n", " ")
	flat = strings.TrimSpace(whitespaceRe.ReplaceAllString(flat, " "))
	runes := []rune(flat)
	if len(runes) > previewMaxRunes {
		return string(runes[:previewMaxRunes])
	}
	return flat
}
