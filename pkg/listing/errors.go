package listing

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// StatusError is a non-2xx response from the listing service.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.Code)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.URL, e.Code, e.Body)
}

// TransportError wraps a failure to reach the listing service or decode
// its answer.
type TransportError struct {
	Op    string // "collections", "items", "item"
	Cause error
	Time  time.Time
}

func (e TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Cause)
}

func (e TransportError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether retrying the same request might succeed.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == 429
	}
	var te TransportError
	return errors.As(err, &te)
}
