// Package errors provides centralized error definitions and handling
// utilities for the PocketPaw client. It defines sentinel errors for
// the Mission Control domain, semantic error types with classification
// (retryable, user-facing), and display sanitization for messages that
// originate from the remote service.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Re-export standard library functions for convenience so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Entity sentinel errors.
var (
	// ErrAgentNotFound indicates that an agent could not be found.
	ErrAgentNotFound = New("agent not found")
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrProjectNotFound indicates that a project could not be found.
	ErrProjectNotFound = New("project not found")
)

// Command sentinel errors.
var (
	// ErrTaskAlreadyRunning indicates the task already has a live handle.
	ErrTaskAlreadyRunning = New("task is already running")
	// ErrTaskNotRunning indicates no handle exists for the task.
	ErrTaskNotRunning = New("task is not running")
	// ErrNoAssignee indicates a run was attempted on an unassigned task.
	ErrNoAssignee = New("task has no assignee")
	// ErrAtCapacity indicates the concurrent-run limit has been reached.
	ErrAtCapacity = New("maximum concurrent tasks reached")
	// ErrInvalidTransition indicates a status change the task lifecycle
	// does not permit.
	ErrInvalidTransition = New("invalid status transition")
)

// General sentinel errors.
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrServiceUnavailable indicates the remote service could not be
	// reached or answered with a server error.
	ErrServiceUnavailable = New("service unavailable")
)

// -----------------------------------------------------------------------------
// Semantic Error Types
// -----------------------------------------------------------------------------

// ValidationError reports input rejected before any network call was
// made. It never implies a state change.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is reports whether the target is the invalid-input sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError reports a reference to an entity the store or service
// does not know.
type NotFoundError struct {
	Kind string // "agent", "task", "project"
	ID   string
}

// NewNotFoundError creates a NotFoundError for the given entity.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is maps the error onto the matching entity sentinel.
func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrAgentNotFound:
		return e.Kind == "agent"
	case ErrTaskNotFound:
		return e.Kind == "task"
	case ErrProjectNotFound:
		return e.Kind == "project"
	}
	return false
}

// CommandError reports a command that reached the remote service and
// failed there, or failed in transport. Local state is untouched when
// a CommandError is returned.
type CommandError struct {
	Op        string // command name, e.g. "run", "skip"
	Status    int    // HTTP status, 0 for transport failures
	Err       error
	retryable bool
}

// NewCommandError wraps a service or transport failure for a command.
// Transport failures and 5xx responses are retryable.
func NewCommandError(op string, status int, err error) *CommandError {
	return &CommandError{
		Op:        op,
		Status:    status,
		Err:       err,
		retryable: status == 0 || status >= 500,
	}
}

func (e *CommandError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsRetryable reports whether the operation that produced the error may
// succeed if reissued. Validation errors are never retryable; transport
// and server-side failures are.
func IsRetryable(err error) bool {
	var cmdErr *CommandError
	if As(err, &cmdErr) {
		return cmdErr.retryable
	}
	return Is(err, ErrServiceUnavailable)
}

// IsUserFacing reports whether the error message is safe to show as-is.
// Everything in this package is local and user-facing except raw
// transport errors, which go through Sanitize first.
func IsUserFacing(err error) bool {
	var valErr *ValidationError
	var nfErr *NotFoundError
	return As(err, &valErr) || As(err, &nfErr)
}

// -----------------------------------------------------------------------------
// Display sanitization
// -----------------------------------------------------------------------------

// maxDisplayLength caps sanitized messages shown to the user.
const maxDisplayLength = 200

var (
	pathPattern   = regexp.MustCompile(`/\S+/\S+`)
	secretPattern = regexp.MustCompile(`(?i)(key|token|secret|password)[=:]\s*\S+`)
)

// Sanitize prepares a message from the remote service or transport for
// display: it truncates to 200 characters and redacts path-like
// fragments and anything that looks like a credential.
func Sanitize(msg string) string {
	if msg == "" {
		return "an error occurred"
	}
	out := msg
	truncated := len(out) > maxDisplayLength
	if truncated {
		out = out[:maxDisplayLength]
	}
	out = pathPattern.ReplaceAllString(out, "[path]")
	out = secretPattern.ReplaceAllString(out, "$1=[redacted]")
	if truncated {
		out = strings.TrimSpace(out) + "..."
	}
	return out
}
