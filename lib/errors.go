package lib

import (
	"errors"
	"fmt"
)

// ErrSessionUnavailable is returned when no authenticated upstream session
// exists and one cannot be established.
var ErrSessionUnavailable = errors.New("no authenticated session available")

// ErrSessionExpired is returned when the upstream rejected a request with one
// of its session-expiry markers. Callers refresh and retry.
var ErrSessionExpired = errors.New("session expired")

// ErrBusy is returned when a job is requested while another one is running.
var ErrBusy = errors.New("another job is already running")

// IsSessionExpired reports whether err wraps ErrSessionExpired.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// ElementNotFoundError is returned when every locator strategy for a page
// entity came up empty.
type ElementNotFoundError struct {
	Entity     string
	Strategies int
}

// Error implements the error interface.
func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s (%d strategies tried)", e.Entity, e.Strategies)
}

// ValidationError is returned when pre-submission validation fails, for
// example an assessment with no linked skills. Nothing has been written
// upstream when it is returned.
type ValidationError struct {
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Subject, e.Reason)
}

// ServerError is returned when the upstream answered with an error page or a
// non-2xx status that is not a session-expiry condition.
type ServerError struct {
	Status int
	Marker string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Marker)
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}
