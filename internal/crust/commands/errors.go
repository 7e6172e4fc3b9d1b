package commands

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies an expected command failure
type Kind int

const (
	KindFailed     Kind = iota // any other expected failure
	KindUsage                  // wrong argument count, unknown option
	KindNotFound               // missing file or directory
	KindPermission             // permission denied
	KindSameFile               // source and destination are the same file
	KindNotDir                 // a directory was required
	KindNotFile                // a regular file was required
	KindIsDir                  // a directory was given where it is not allowed
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission denied"
	case KindSameFile:
		return "same file"
	case KindNotDir:
		return "not a directory"
	case KindNotFile:
		return "not a file"
	case KindIsDir:
		return "is a directory"
	default:
		return "failed"
	}
}

// Error is the outcome of a command that failed in an anticipated way.
// Message is the one line shown to the user, without the trailing newline.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a command error with a formatted message
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// usageError reports a wrong number of arguments
func usageError(format string, args ...interface{}) *Error {
	return newError(KindUsage, format, args...)
}

// wrap attaches the underlying cause to a command error
func (e *Error) wrap(err error) *Error {
	e.Err = err
	return e
}

// kindOf maps a filesystem error to the matching Kind
func kindOf(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	default:
		return KindFailed
	}
}

// IsKind reports whether err is a command Error of the given kind
func IsKind(err error, kind Kind) bool {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind == kind
	}
	return false
}
