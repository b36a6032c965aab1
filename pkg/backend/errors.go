package backend

import (
	"errors"
	"fmt"
)

// ErrUnexpectedShape reports a response body that is not the documented shape,
// such as an object where a list is expected.
var ErrUnexpectedShape = errors.New("backend: unexpected response shape")

// UnavailableError reports a network failure, a 5xx status or an `erro`
// payload from the backend.
type UnavailableError struct {
	Op     string
	Status int
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend: %s unavailable (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend: %s unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RemoteError reports a 4xx response. The body is kept for diagnostics.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend: %s rejected (status %d): %s", e.Op, e.Status, e.Body)
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}
