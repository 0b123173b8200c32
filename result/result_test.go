package result

import (
	"errors"
	"testing"
)

func TestSourceError(t *testing.T) {
	cause := errors.New("upstream said no")
	err := NewSourceError(AuthenticationError, cause)

	if !errors.Is(err, cause) {
		t.Error("source error does not unwrap to its cause")
	}
	if err.Kind() != AuthenticationError {
		t.Errorf("Kind() = %v", err.Kind())
	}
	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q", err.Error())
	}

	var se SourceError
	if !errors.As(error(err), &se) {
		t.Error("errors.As failed")
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ConfigurationError:  "configuration",
		WildcardError:       "wildcard",
		AuthenticationError: "authentication",
		InterruptedError:    "interrupted",
		ErrorKind(42):       "ErrorKind(42)",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("%d: got %q, want %q", int(k), k.String(), want)
		}
	}
}
