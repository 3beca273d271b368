// Package slug defines the feature identifier grammar and its validator.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the maximum number of characters in a slug.
const MaxLength = 50

// PatternText is the human-readable slug grammar.
const PatternText = "[a-z0-9]+(-[a-z0-9]+)*"

// pattern matches a complete slug: lowercase alphanumeric segments joined by single hyphens.
var pattern = regexp.MustCompile(`^` + PatternText + `$`)

// nonAlphanumeric matches runs of characters that are not allowed in a slug.
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Result is the outcome of validating a candidate slug.
type Result int

const (
	Valid Result = iota
	InvalidFormat
	TooLong
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Valid:
		return "Valid"
	case InvalidFormat:
		return "InvalidFormat"
	case TooLong:
		return "TooLong"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Validate checks a candidate against the grammar and then the length bound.
// The first failing rule wins.
func Validate(candidate string) Result {
	if !pattern.MatchString(candidate) {
		return InvalidFormat
	}
	if len(candidate) > MaxLength {
		return TooLong
	}
	return Valid
}

// IsValid reports whether candidate is a well-formed slug.
func IsValid(candidate string) bool {
	return Validate(candidate) == Valid
}

// MatchesGrammar reports whether s matches the slug grammar, ignoring length.
// Documentation directories are filtered with this.
func MatchesGrammar(s string) bool {
	return pattern.MatchString(s)
}

// Reason describes why a candidate failed validation, for feeding back to a generator.
// Returns "" for valid candidates.
func Reason(candidate string, r Result) string {
	switch r {
	case InvalidFormat:
		return fmt.Sprintf("Invalid format: slug must match pattern %s", PatternText)
	case TooLong:
		return fmt.Sprintf("Too long: slug must be %d characters or less (got %d)", MaxLength, len(candidate))
	default:
		return ""
	}
}

// Slugify converts free text into a slug.
// Lowercase, replaces non-alphanumeric runs with hyphens, trims, truncates to MaxLength.
// Returns "" when the text has no usable characters.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = s[:MaxLength]
		s = strings.TrimRight(s, "-")
	}
	return s
}

// Expand substitutes slug into every {slug} placeholder of template.
func Expand(template, slug string) string {
	return strings.ReplaceAll(template, "{slug}", slug)
}
