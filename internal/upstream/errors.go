package upstream

import (
	"errors"
	"fmt"
)

// StatusError is returned when the upstream answers with a non-2xx status.
// Body is the response body exactly as received.
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s: unexpected status %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Body)
}

// AsStatus reports whether err wraps a *StatusError and returns it.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
