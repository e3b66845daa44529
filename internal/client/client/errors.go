package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/playerhub/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the server. Code is the server's
// snake_case error code.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("request failed: %d %s", e.Status, e.Code)
}

// Unwrap maps the status back to the shared error kinds so callers can use
// errors.Is with common.ErrorX values.
func (e *APIError) Unwrap() []error {
	switch e.Status {
	case http.StatusBadRequest:
		return []error{common.ErrorValidation}
	case http.StatusUnauthorized:
		return []error{common.ErrorUnauthorized, ErrUnauthorized}
	case http.StatusForbidden:
		return []error{common.ErrorForbidden}
	case http.StatusNotFound:
		return []error{common.ErrorNotFound}
	case http.StatusTooManyRequests:
		if e.Code == "account_locked" {
			return []error{common.ErrorLocked}
		}
		return []error{common.ErrorRateLimited}
	default:
		return []error{common.ErrorDependency}
	}
}
