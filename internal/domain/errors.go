package domain

import "fmt"

// Kind classifies a domain error
type Kind string

const (
	KindNotFound Kind = "NOT_FOUND"
	KindConflict Kind = "CONFLICT"
	KindInvalid  Kind = "INVALID"
)

// Error is a domain error raised by the catalog services
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrConflict = &Error{Kind: KindConflict, Message: "resource conflict"}
	ErrInvalid  = &Error{Kind: KindInvalid, Message: "invalid argument"}
)

// NotFound creates a not-found error
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Invalid creates an invalid-argument error
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}
