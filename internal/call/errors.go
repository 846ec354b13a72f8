package call

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes call failures.
type ErrorKind string

const (
	// ErrInvalidYear means the dialed key has no directory entry.
	ErrInvalidYear ErrorKind = "invalid_year"
	// ErrUnprovisioned means the directory entry exists but has no agent id.
	ErrUnprovisioned ErrorKind = "unprovisioned"
	// ErrPermissionDenied means microphone capture was refused.
	ErrPermissionDenied ErrorKind = "permission_denied"
	// ErrSessionOpen means the remote service rejected or failed to open the session.
	ErrSessionOpen ErrorKind = "session_open_failure"
	// ErrServiceExhausted means the remote service reported quota or credit depletion.
	ErrServiceExhausted ErrorKind = "service_exhausted"
	// ErrRemoteSession is any other mid-call error from the remote service.
	ErrRemoteSession ErrorKind = "remote_session_error"
	// ErrHangup means closing the remote session failed. Logged only; the
	// local session still resets.
	ErrHangup ErrorKind = "hangup_failure"
)

// Error is a call failure with a kind the UI can map to a presentation.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewInvalidYearError creates an invalid-year error.
func NewInvalidYearError(year string) *Error {
	return &Error{Kind: ErrInvalidYear, Message: fmt.Sprintf("no directory entry for %q", year)}
}

// NewUnprovisionedError creates an error for a listed year with no agent.
func NewUnprovisionedError(year string) *Error {
	return &Error{Kind: ErrUnprovisioned, Message: fmt.Sprintf("no agent provisioned for %q", year)}
}

// NewPermissionDeniedError wraps a refused microphone capture request.
func NewPermissionDeniedError(cause error) *Error {
	return &Error{Kind: ErrPermissionDenied, Message: "microphone capture denied", Cause: cause}
}

// NewSessionOpenError wraps a failed remote session open.
func NewSessionOpenError(cause error) *Error {
	return &Error{Kind: ErrSessionOpen, Message: "could not open remote session", Cause: cause}
}

// NewRemoteSessionError wraps a mid-call error from the remote service.
func NewRemoteSessionError(cause error) *Error {
	return &Error{Kind: ErrRemoteSession, Message: "remote session error", Cause: cause}
}

// IsExhausted reports whether an error payload indicates quota or credit
// depletion on the remote service. Matched by substring because the service
// does not expose a stable code for it.
func IsExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "credit")
}
