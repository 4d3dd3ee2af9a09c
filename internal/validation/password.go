// Package validation checks user input before it reaches a service.
package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

const (
	// MinPasswordLength matches the signup form.
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
	maxEmailLength    = 254
)

// ValidatePassword checks the length limits and rejects passwords made only of whitespace.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return errors.New("password must be at least 6 characters long")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must not exceed 72 bytes")
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsSpace(r) }) < 0 {
		return errors.New("password cannot be blank")
	}
	return nil
}

// ValidateEmail checks that email is a bare address with a dotted domain.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return errors.New("email must not exceed 254 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("invalid email format")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") || strings.HasPrefix(domain, ".") {
		return errors.New("invalid email format")
	}
	return nil
}
