package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"merchantdash/internal/auth"
	"merchantdash/internal/dashboard"
	"merchantdash/internal/session"
)

var ErrNotSignedIn = errors.New("not signed in")

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, httpCode(fiberErr.Code), fiberErr.Message, nil
	}
	if errors.Is(err, ErrNotSignedIn) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}

	var sessionValidation *session.ValidationError
	if errors.As(err, &sessionValidation) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", sessionValidation.Message, map[string]any{"field": sessionValidation.Field}
	}
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case session.AlreadyRegistered:
			return http.StatusConflict, "ALREADY_REGISTERED", authErr.Message, nil
		case session.InvalidCredentials:
			return http.StatusUnauthorized, "INVALID_CREDENTIALS", authErr.Message, nil
		case session.ConfirmationRequired:
			return http.StatusForbidden, "CONFIRMATION_REQUIRED", authErr.Message, nil
		default:
			return http.StatusBadGateway, "AUTH_FAILED", authErr.Message, nil
		}
	}

	var validation *dashboard.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validation.Message, map[string]any{"field": validation.Field}
	}
	if errors.Is(err, dashboard.ErrForbidden) {
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	}
	if errors.Is(err, dashboard.ErrNotConfirmed) {
		return http.StatusPreconditionRequired, "NOT_CONFIRMED", "Retrain must be confirmed", nil
	}
	var cmdErr *dashboard.CommandError
	if errors.As(err, &cmdErr) {
		return http.StatusUnprocessableEntity, "COMMAND_REJECTED", cmdErr.Reason, map[string]any{"command": cmdErr.Command}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT", "Backend did not answer in time", nil
	}
	var syncErr *dashboard.SyncFailure
	if errors.As(err, &syncErr) {
		return http.StatusBadGateway, "SYNC_FAILED", "Dashboard could not be refreshed", map[string]any{"stage": syncErr.Stage}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	default:
		return "HTTP_ERROR"
	}
}
