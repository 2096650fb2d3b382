package source

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNotFound is returned when the source does not know an app id.
	ErrTargetNotFound = errors.New("target not found")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidRequest is returned for page requests missing required fields.
	ErrInvalidRequest = errors.New("invalid page request")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Body)
}
