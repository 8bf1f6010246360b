// Package grading decides whether a learner's answer matches the answer
// declared by the worksheet author.
package grading

import (
	"regexp"
	"strings"
)

var (
	mathPunctRegex = regexp.MustCompile(`[$()\\]`)
	// Separators after the letter are consumed greedily so that Normalize
	// stays idempotent ("a.:5" and "a5" both end as "a5").
	optionPrefixRegex = regexp.MustCompile(`^([abcd])[.:)]+`)
)

// Normalize turns a raw answer into a canonical comparable form. The steps
// run in a fixed order: lower-case, trim, strip LaTeX leftovers ($ ( ) \),
// drop all whitespace, use "." as decimal separator, strip an option prefix
// such as "A." or "b)".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	s = strings.TrimSpace(s)
	s = mathPunctRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ",", ".")
	s = optionPrefixRegex.ReplaceAllString(s, "$1")
	return s
}
