package service

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable failure code carried to API clients in
// the `code` field. Clients branch on the kind, never on message text.
type ErrorKind string

const (
	KindPollNotFound     ErrorKind = "POLL_NOT_FOUND"
	KindPollExpired      ErrorKind = "POLL_EXPIRED"
	KindInvalidOption    ErrorKind = "INVALID_OPTION"
	KindAlreadyVoted     ErrorKind = "ALREADY_VOTED"
	KindInvalidAccessKey ErrorKind = "INVALID_ACCESS_KEY"
	KindPollHasVotes     ErrorKind = "POLL_HAS_VOTES"
	KindNotOwner         ErrorKind = "NOT_OWNER"
	KindValidation       ErrorKind = "VALIDATION"
)

// Error is a structured service failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewError builds a service error from a kind and message. Clients that
// receive a failure code over the wire use it to rebuild the typed error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

// KindOf returns the error's kind, or empty if err is not a service error.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}
