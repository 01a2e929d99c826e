package shared

import (
	"fmt"
	"regexp"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	totpPattern  = regexp.MustCompile(`^\d{6}$`)
)

// ValidateEmail checks that addr has the shape local@domain.tld with no
// whitespace or extra @ signs.
func ValidateEmail(addr string) error {
	if !emailPattern.MatchString(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, addr)
	}
	return nil
}

// ValidatePassword enforces the minimum password length of 8 characters.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// PasswordStrength scores a password from 0 to 5, one point each for
// minimum length, an uppercase letter, a lowercase letter, a digit, and a
// special character.
func PasswordStrength(password string) int {
	score := 0
	if len(password) >= 8 {
		score++
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	for _, hit := range []bool{upper, lower, digit, special} {
		if hit {
			score++
		}
	}
	return score
}

// StrengthLabel names a [PasswordStrength] score for display.
func StrengthLabel(score int) string {
	switch {
	case score >= 5:
		return "strong"
	case score >= 3:
		return "fair"
	default:
		return "weak"
	}
}

// ValidateTOTPCode checks that code is exactly six digits.
func ValidateTOTPCode(code string) error {
	if !totpPattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidTOTP, code)
	}
	return nil
}
