// ABOUTME: Input format rules shared by signup, login, reset and moderation requests
// ABOUTME: Failures are *Error values whose message is reported to the caller verbatim

package validate

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,12}$`)
	passwordPattern = regexp.MustCompile(`^[0-9A-Za-z!@#$%_]{5,15}$`)
	passcodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	idPattern       = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// Error describes a malformed or missing request field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsError reports whether err is (or wraps) a validation failure.
func IsError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Message: field + " is required"}
	}
	return nil
}

// Username checks the 1-12 character alphanumeric/underscore rule.
func Username(s string) error {
	if err := required("username", s); err != nil {
		return err
	}
	if !usernamePattern.MatchString(s) {
		return &Error{Field: "username", Message: "Invalid username"}
	}
	return nil
}

// Password checks the 5-15 character rule shared by user-chosen and derived passwords.
func Password(s string) error {
	if err := required("password", s); err != nil {
		return err
	}
	if !passwordPattern.MatchString(s) {
		return &Error{Field: "password", Message: "Invalid password"}
	}
	return nil
}

// Email checks that s is a single bare address.
func Email(s string) error {
	if err := required("email", s); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return &Error{Field: "email", Message: "Invalid email"}
	}
	return nil
}

// Passcode checks the six digit reset code format.
func Passcode(s string) error {
	if err := required("code", s); err != nil {
		return err
	}
	if !passcodePattern.MatchString(s) {
		return &Error{Field: "code", Message: "Invalid code"}
	}
	return nil
}

// ID checks a 128-bit hex node or edge identifier.
func ID(field, s string) error {
	if err := required(field, s); err != nil {
		return err
	}
	if !idPattern.MatchString(s) {
		return &Error{Field: field, Message: "Invalid " + field}
	}
	return nil
}

// Required checks that a free-form field is present.
func Required(field, s string) error {
	return required(field, s)
}
