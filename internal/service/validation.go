package service

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/greenbasket/storefront/internal/errors"
)

// emailPattern is deliberately loose: one @, no whitespace, a dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// validateEmail checks the email shape without attempting deliverability checks.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "Email is required.")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.ValidationField("email", "Enter a valid email address.")
	}
	return nil
}

// validatePassword enforces the account password policy: at least 8
// characters with an upper-case letter, a lower-case letter, a digit, and a
// special character.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.ValidationField("password", "Password must be at least 8 characters long.")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return apperrors.ValidationField("password", "Password must contain an upper-case letter.")
	case !hasLower:
		return apperrors.ValidationField("password", "Password must contain a lower-case letter.")
	case !hasDigit:
		return apperrors.ValidationField("password", "Password must contain a digit.")
	case !hasSpecial:
		return apperrors.ValidationField("password", "Password must contain a special character.")
	}
	return nil
}

// validateFullName requires a non-blank display name.
func validateFullName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ValidationField("fullName", "Full name is required.")
	}
	return nil
}
