package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnexpectedShape is returned when a response body does not decode into
// the expected container type, e.g. the devices endpoint answering with an
// object instead of a list. Callers treat it like any other fetch failure.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// APIError is a non-success HTTP response from the backend. Detail carries
// the backend's own message when the body supplied one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// IsTimeout reports whether err was caused by a request deadline expiring,
// so the UI can surface timeouts distinctly from other fetch failures.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
