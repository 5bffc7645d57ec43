package dashboard

import (
	"errors"
	"fmt"

	"merchantdash/internal/backend"
)

var (
	ErrNotConfirmed = errors.New("retrain not confirmed")
	ErrForbidden    = errors.New("action not permitted for this role")
)

const genericFailure = "request failed"

// ValidationError rejects command input before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SyncFailure aborts a sync. The previous snapshot stays on display.
type SyncFailure struct {
	Stage string
	Err   error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync failed at %s: %v", e.Stage, e.Err)
}

func (e *SyncFailure) Unwrap() error { return e.Err }

// CommandError is a rejected mutation or retrain. Reason is the remote
// detail verbatim when the backend supplied one.
type CommandError struct {
	Command string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandError(command string, err error) *CommandError {
	reason := backend.Detail(err)
	if reason == "" {
		reason = genericFailure
	}
	return &CommandError{Command: command, Reason: reason, Err: err}
}
