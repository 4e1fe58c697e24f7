package sanitizer

import "testing"

func TestNormalizeFreeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n  ", ""},
		{"plain text", "see you soon", "see you soon"},
		{"surrounding whitespace", "  hello there  ", "hello there"},
		{"collapsed runs", "too   many\t\tspaces", "too many spaces"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"control runes dropped", "abc\x00\x07def", "abcdef"},
		{"unicode preserved", "Merhaba  dünya", "Merhaba dünya"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFreeText(tt.input); got != tt.want {
				t.Errorf("NormalizeFreeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
