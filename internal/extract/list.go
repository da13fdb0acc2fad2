// Package extract turns raw text sources (inline lists, CSV files, HTML
// tables) into the string columns that feed validation.
package extract

import "strings"

// Columns holds the raw x and y cells read from a source
type Columns struct {
	XName string   `json:"x_name"`
	YName string   `json:"y_name"`
	X     []string `json:"x"`
	Y     []string `json:"y"`
}

// SplitList splits an inline list on commas, semicolons and newlines.
// Tokens are trimmed. Empty tokens in the middle are kept so validation
// can report their position; empty tokens at the end are dropped.
func SplitList(s string) []string {
	var tokens []string
	start := 0
	for i, r := range s {
		if r == ',' || r == ';' || r == '\n' {
			tokens = append(tokens, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	tokens = append(tokens, strings.TrimSpace(s[start:]))

	for len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
