package backend

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures where no well-formed response was obtained:
// connection errors, timeouts and bodies that are not JSON.
var ErrTransport = errors.New("transport failure")

// APIError is a well-formed response that did not report success.
type APIError struct {
	StatusCode int
	// Message is the backend-supplied reason, empty when none was given.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend rejected request (status %d)", e.StatusCode)
}

func transportErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, errors.Join(ErrTransport, err))
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Message extracts the backend-supplied reason from err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
