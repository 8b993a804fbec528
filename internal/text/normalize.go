// Package text prepares raw input text for prompting.
package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

var punctReplacer = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"…", "...",
	" ", " ", // non-breaking space
)

// Normalize prepares raw input text for synthesis. It maps typographic
// punctuation to ASCII, collapses all whitespace runs to single spaces, and
// rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	s = punctReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
