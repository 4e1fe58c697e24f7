package locale

import "strings"

// DefaultDateLayout is used when a recipient's phone gives no country hint.
const DefaultDateLayout = "2006-01-02"

type Country struct {
	Code          string   // ISO 3166-1 alpha-2 country code
	Name          string   // Human-readable country name
	PhonePrefixes []string // Valid phone number prefixes (e.g., ["+90", "90"])
	DateLayout    string   // Go time layout for dates rendered to this audience
}

var Countries = map[string]Country{
	"TR": {
		Code:          "TR",
		Name:          "Turkey",
		PhonePrefixes: []string{"+90", "90"},
		DateLayout:    "02.01.2006",
	},
	"US": {
		Code:          "US",
		Name:          "United States",
		PhonePrefixes: []string{"+1", "1"},
		DateLayout:    "01/02/2006",
	},
}

// DateLayoutForPhone infers the date layout to use for a recipient from
// their phone number prefix. Unknown or empty phones get the default layout.
func DateLayoutForPhone(phone string) string {
	normalized := strings.TrimSpace(phone)
	if normalized == "" {
		return DefaultDateLayout
	}

	for _, country := range Countries {
		for _, prefix := range country.PhonePrefixes {
			if strings.HasPrefix(normalized, prefix) {
				return country.DateLayout
			}
		}
	}

	return DefaultDateLayout
}
