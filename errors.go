package captcha

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes solve failures so callers can pick a recovery action.
type ErrorKind int

const (
	errorNone              ErrorKind = iota
	ErrorBadAuthentication           // credentials rejected
	ErrorTaskCreation                // provider refused the job at submission
	ErrorTaskSolution                // job accepted but could not be solved
	ErrorTaskReport                  // reporting a solution failed
	ErrorTimeout                     // deadline elapsed without a terminal answer
	ErrorUnsupported                 // operation, kind or parameter not implemented
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorBadAuthentication:
		return "bad authentication"
	case ErrorTaskCreation:
		return "task creation"
	case ErrorTaskSolution:
		return "task solution"
	case ErrorTaskReport:
		return "task report"
	case ErrorTimeout:
		return "timeout"
	case ErrorUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Error is the single error type surfaced by the engine and all providers.
type Error struct {
	Kind     ErrorKind
	Provider string // provider name, empty when raised by the engine itself
	Code     string // vendor error code, e.g. ERROR_KEY_DOES_NOT_EXIST
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Code != "" {
		msg = e.Code
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrTimeout) works
// regardless of provider or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrBadAuthentication = &Error{Kind: ErrorBadAuthentication}
	ErrTaskCreation      = &Error{Kind: ErrorTaskCreation}
	ErrTaskSolution      = &Error{Kind: ErrorTaskSolution}
	ErrTaskReport        = &Error{Kind: ErrorTaskReport}
	ErrTimeout           = &Error{Kind: ErrorTimeout}
	ErrUnsupported       = &Error{Kind: ErrorUnsupported}
)

// KindOf returns the taxonomy kind carried by err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return errorNone
}

// NewError builds a taxonomy error for the named provider.
func NewError(kind ErrorKind, provider, code, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Code: code, Message: message}
}

// WrapError attaches a taxonomy kind to a lower-level failure.
func WrapError(kind ErrorKind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// UnsupportedKind reports that a provider cannot solve the given challenge kind.
func UnsupportedKind(provider string, kind ChallengeKind) *Error {
	return &Error{Kind: ErrorUnsupported, Provider: provider, Message: fmt.Sprintf("challenge kind %s is not supported", kind)}
}

// UnsupportedSession reports a session field the provider cannot honor for kind.
func UnsupportedSession(provider string, kind ChallengeKind, field string) *Error {
	return &Error{Kind: ErrorUnsupported, Provider: provider, Message: fmt.Sprintf("%s is not supported for %s", field, kind)}
}
