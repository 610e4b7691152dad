package genclient

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable = errors.New("generation service: unreachable or transport failure")
	ErrRejected    = errors.New("generation service: request rejected")
	ErrBadResponse = errors.New("generation service: malformed response")
	ErrNotFound    = errors.New("generation service: job not found")
)

// Error wraps a sentinel with the failing operation and HTTP details
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Temporary reports whether another attempt may succeed: transport
// failures and 5xx/429 responses.
func (e *Error) Temporary() bool {
	switch {
	case errors.Is(e.Sentinel, ErrUnavailable):
		return true
	case errors.Is(e.Sentinel, ErrRejected):
		return e.Status >= 500 || e.Status == 429
	default:
		return false
	}
}

// IsTemporary reports whether err is a *Error worth retrying
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Temporary()
	}
	return false
}
