package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork matches every failed round trip, whether the server could
	// not be reached or it answered with a non-2xx status.
	ErrNetwork = errors.New("network failure")

	// ErrUnauthorized matches 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
)

// Error is a failed backend call.
type Error struct {
	Op     string // e.g. "generate-session"
	Status int    // HTTP status, 0 when no response was received
	Detail string // human-readable detail from the server
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Message is what the user is shown.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Status == 0 {
		return "Could not reach the drill server. Check your connection and try again."
	}
	return fmt.Sprintf("The drill server returned %s.", http.StatusText(e.Status))
}

// UserMessage returns a displayable message for any error.
func UserMessage(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Message()
	}
	return err.Error()
}
