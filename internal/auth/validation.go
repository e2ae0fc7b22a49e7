package auth

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMinPasswordLength applies when the configured minimum is zero
const DefaultMinPasswordLength = 8

// ValidatePassword checks a candidate password against the policy.
// The policy is length-only; no character class requirements.
// Length is counted in characters, not bytes, so multibyte input is
// measured the way a user counts it.
func ValidatePassword(password string, minLength int) error {
	if minLength == 0 {
		minLength = DefaultMinPasswordLength
	}

	length := utf8.RuneCountInString(password)

	if length < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	// Cap length to keep hashing cost bounded
	if length > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}

	return nil
}
