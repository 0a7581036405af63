package validation

import (
	"regexp"
	"unicode"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 5

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail reports whether the address has a non-empty local part,
// a domain and a dotted TLD. This is a containment check, not full RFC
// 5322 parsing.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks the password policy: at least 5 characters
// with at least one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) bool {
	if len(password) < MinPasswordLength {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	return hasUpper && hasLower && hasDigit
}
