// Package result describes how each technique of an enumeration run ended.
package result

import "fmt"

type Outcome struct {
	Source  string
	Units   int
	Records int
	// Error is nil when the technique ran to completion, even with zero
	// records found.
	Error SourceError
}

type ErrorKind int

const (
	ConfigurationError  = ErrorKind(iota)
	WildcardError       = ErrorKind(iota)
	AuthenticationError = ErrorKind(iota)
	InterruptedError    = ErrorKind(iota)
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration"
	case WildcardError:
		return "wildcard"
	case AuthenticationError:
		return "authentication"
	case InterruptedError:
		return "interrupted"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

type SourceError interface {
	error
	Unwrap() error
	Kind() ErrorKind
}

type sourceError struct {
	wrapped error
	kind    ErrorKind
}

func NewSourceError(kind ErrorKind, err error) SourceError {
	return &sourceError{
		wrapped: err,
		kind:    kind,
	}
}

func (e *sourceError) Error() string {
	return e.wrapped.Error()
}

func (e *sourceError) Unwrap() error {
	return e.wrapped
}

func (e *sourceError) Kind() ErrorKind {
	return e.kind
}
