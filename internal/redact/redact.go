// Package redact scrubs credential-shaped substrings from any text before
// it leaves the process boundary: supervisor output lines, event payloads,
// and artifact files.
package redact

import "fmt"

const starRun = "********"

// Redactor applies an ordered list of pattern-based transforms to input
// text, replacing every match (not just the first per line) with a
// fixed-length run of stars plus a type tag.
type Redactor struct {
	patterns []Pattern
}

// New creates a Redactor seeded with the built-in pattern list plus any
// caller-supplied custom patterns.
func New(custom ...Pattern) *Redactor {
	return &Redactor{patterns: append(DefaultPatterns(), custom...)}
}

// AddPattern appends one more pattern, applied after all existing ones.
func (r *Redactor) AddPattern(p Pattern) {
	r.patterns = append(r.patterns, p)
}

// Redact scrubs every configured pattern's matches from input.
func (r *Redactor) Redact(input string) string {
	result := input
	for _, p := range r.patterns {
		result = p.Regex.ReplaceAllStringFunc(result, func(string) string {
			return fmt.Sprintf("%s[%s]", starRun, p.Tag)
		})
	}
	return result
}

// RedactLines redacts each line of a slice independently, preserving order.
func (r *Redactor) RedactLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = r.Redact(l)
	}
	return out
}

// RedactMap redacts every string value in a JSON-shaped map, recursing into
// nested maps. Non-string, non-map values pass through unchanged.
func (r *Redactor) RedactMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = r.Redact(val)
		case map[string]interface{}:
			out[k] = r.RedactMap(val)
		default:
			out[k] = v
		}
	}
	return out
}
