package sanitizer

import (
	"strings"
	"unicode"
)

// NormalizeFreeText trims a user-supplied text field, collapses runs of
// whitespace into single spaces and drops control runes. Validation length
// checks run on the normalized value.
func NormalizeFreeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		case unicode.IsControl(r):
			// skip
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}
