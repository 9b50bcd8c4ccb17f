// Package validation checks request input. Field helpers cover single values;
// ValidateStruct applies go-playground/validator tags to request bodies.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,30}$`)
)

// MinPasswordLength applies to adult accounts created through registration
const MinPasswordLength = 8

// FieldError reports a problem with a single input field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return FieldError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return FieldError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a registration password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return FieldError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return FieldError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return FieldError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateUsername checks a child username
func ValidateUsername(username string) error {
	if username == "" {
		return FieldError{Field: "username", Message: "username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return FieldError{Field: "username", Message: "username must be 3-30 letters, digits, dots, dashes or underscores"}
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
