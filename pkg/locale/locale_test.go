package locale

import "testing"

func TestDateLayoutForPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"turkish mobile", "+905551234567", "02.01.2006"},
		{"turkish without plus", "905551234567", "02.01.2006"},
		{"us number", "+12125551234", "01/02/2006"},
		{"unknown prefix", "+4915112345678", DefaultDateLayout},
		{"empty phone", "", DefaultDateLayout},
		{"surrounding spaces", "  +905551234567 ", "02.01.2006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateLayoutForPhone(tt.phone); got != tt.want {
				t.Errorf("DateLayoutForPhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}
