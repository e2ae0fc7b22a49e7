package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		minLen   int
		wantErr  bool
	}{
		{"six chars rejected", "short1", 8, true},
		{"seven chars rejected", "short12", 8, true},
		{"exactly eight accepted", "abcdefgh", 8, false},
		{"longer accepted", "a-much-longer-password", 8, false},
		{"empty rejected", "", 8, true},
		{"zero min falls back to default", "abcdefg", 0, true},
		{"zero min accepts eight", "abcdefgh", 0, false},
		{"over max length rejected", strings.Repeat("a", 129), 8, true},
		{"at max length accepted", strings.Repeat("a", 128), 8, false},
		{"multibyte counted as characters not bytes", "ññññ", 8, true},
		{"eight multibyte chars accepted", "ññññññññ", 8, false},
		{"128 multibyte chars accepted", strings.Repeat("ñ", 128), 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.minLen)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q, %d) error = %v, wantErr %v", tt.password, tt.minLen, err, tt.wantErr)
			}
		})
	}
}
