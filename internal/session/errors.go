package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"merchantdash/internal/identity"
)

// ValidationError is a local pre-flight failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type AuthKind string

const (
	AlreadyRegistered    AuthKind = "already_registered"
	InvalidCredentials   AuthKind = "invalid_credentials"
	ConfirmationRequired AuthKind = "confirmation_required"
	Unknown              AuthKind = "unknown"
)

// AuthError is a normalized provider failure. AlreadyRegistered and
// ConfirmationRequired are recoverable: the caller should switch to login
// or wait for the verification email.
type AuthError struct {
	Kind    AuthKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

func validateCredentials(email, password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return &ValidationError{Field: "password", Message: "password must be at least 6 characters"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	return nil
}

func signUpError(err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		if pe.Status == 400 || pe.Code == "user_already_exists" || pe.Code == "email_exists" ||
			strings.Contains(strings.ToLower(pe.Message), "registered") {
			return &AuthError{Kind: AlreadyRegistered, Message: "email already registered, please log in", Err: err}
		}
		return &AuthError{Kind: Unknown, Message: pe.Message, Err: err}
	}
	return &AuthError{Kind: Unknown, Message: "sign up failed", Err: err}
}

func signInError(err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		if pe.Code == "invalid_grant" || pe.Code == "invalid_credentials" || strings.Contains(pe.Message, "Invalid login") {
			return &AuthError{Kind: InvalidCredentials, Message: "wrong email or password", Err: err}
		}
		return &AuthError{Kind: Unknown, Message: pe.Message, Err: err}
	}
	return &AuthError{Kind: Unknown, Message: "sign in failed", Err: err}
}
