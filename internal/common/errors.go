// Package common defines shared constants and sentinel errors used across
// client and server layers of PlayerHub. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Error kinds. Every domain error below wraps exactly one of these so the
// transport layer can map it to a status code with errors.Is.
var (
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorNotFound     = errors.New("not found")
	ErrorRateLimited  = errors.New("rate limited")
	ErrorLocked       = errors.New("locked")
	ErrorDependency   = errors.New("dependency failure")
	ErrorInternal     = errors.New("internal error")
)

var (
	// Enrollment / login.
	ErrInvalidEmail     = fmt.Errorf("invalid email: %w", ErrorValidation)
	ErrInvalidPinFormat = fmt.Errorf("pin must be exactly 4 digits: %w", ErrorValidation)
	ErrInvalidCode      = fmt.Errorf("invalid code: %w", ErrorUnauthorized)
	ErrCodeExpired      = fmt.Errorf("code expired: %w", ErrorUnauthorized)
	ErrInvalidPin       = fmt.Errorf("invalid pin: %w", ErrorUnauthorized)
	ErrUnknownUser      = fmt.Errorf("unknown user: %w", ErrorNotFound)
	ErrMailFailed       = fmt.Errorf("mail delivery failed: %w", ErrorDependency)

	// Tokens.
	ErrInvalidToken      = fmt.Errorf("invalid token: %w", ErrorUnauthorized)
	ErrTokenExpired      = fmt.Errorf("token expired: %w", ErrorUnauthorized)
	ErrWrongPurpose      = fmt.Errorf("token not valid for this operation: %w", ErrorForbidden)
	ErrInvalidSetupToken = fmt.Errorf("invalid setup token: %w", ErrorForbidden)

	// Devices and permissions.
	ErrInvalidDeviceID  = fmt.Errorf("invalid device id: %w", ErrorValidation)
	ErrDeviceNotFound   = fmt.Errorf("device not found: %w", ErrorNotFound)
	ErrNotMember        = fmt.Errorf("not a member: %w", ErrorForbidden)
	ErrInsufficientRole = fmt.Errorf("insufficient permissions: %w", ErrorForbidden)
	ErrAlreadyClaimed   = fmt.Errorf("device already claimed: %w", ErrorForbidden)
	ErrRemovingMaster   = fmt.Errorf("cannot remove the device master: %w", ErrorValidation)
	ErrShareWithMaster  = fmt.Errorf("device master already has full access: %w", ErrorValidation)
	ErrMemberNotFound   = fmt.Errorf("member not found: %w", ErrorNotFound)
	ErrInvalidName      = fmt.Errorf("friendly name must be 1-64 characters: %w", ErrorValidation)
	ErrInvalidEndpoint  = fmt.Errorf("endpoint must be host:port: %w", ErrorValidation)
	ErrInvalidContent   = fmt.Errorf("title and content type are required: %w", ErrorValidation)

	// Dispatch.
	ErrUnknownCommand = fmt.Errorf("unknown command: %w", ErrorValidation)
	ErrDispatchFailed = fmt.Errorf("dispatch failed: %w", ErrorDependency)
)

// LockedError reports an account lockout together with the time left
// until the next login attempt is accepted.
type LockedError struct {
	Remaining time.Duration
}

// RemainingMinutes rounds the remaining lockout up to whole minutes.
func (e *LockedError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes())
}

func (e *LockedError) Unwrap() error { return ErrorLocked }

// RateLimitError reports a rejected request and how long the caller has to
// wait before the next one is admitted.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %d second(s)", e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error { return ErrorRateLimited }
