package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork matches every *NetworkError via errors.Is.
var ErrNetwork = errors.New("network error")

// NetworkError means the server could not be reached or the exchange broke
// before a status code arrived.
type NetworkError struct {
	Op  string // "POST /auth/token/"
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: unable to reach the server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsUnauthorized reports a 401 StatusError
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}
