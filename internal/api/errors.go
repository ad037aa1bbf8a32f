package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized covers a missing local token and 401/403 answers.
var ErrUnauthorized = errors.New("api: unauthorized")

// TransportError is a failure before any server answer: dial, timeout,
// cancellation, unreadable body.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError is an ERROR envelope, shown to users as "CODE: message".
// Non-envelope error statuses are reported with Code "HTTP_<status>".
type BusinessError struct {
	Status  int
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Code + ": " + e.Message
}

// Is lets 401/403 business errors match ErrUnauthorized.
func (e *BusinessError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid %s: %s=%s", e.Field, e.Rule, e.Param)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
}

// Code returns the business error code carried by err, or "".
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
