package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/playerhub/internal/common"
)

type errorCode struct {
	err  error
	code string
}

// Checked in order; specific sentinels before the kinds they wrap.
var errorCodes = []errorCode{
	{common.ErrInvalidEmail, "invalid_email"},
	{common.ErrInvalidPinFormat, "invalid_pin_format"},
	{common.ErrInvalidCode, "invalid_code"},
	{common.ErrCodeExpired, "code_expired"},
	{common.ErrInvalidPin, "invalid_pin"},
	{common.ErrUnknownUser, "unknown_user"},
	{common.ErrMailFailed, "mail_failed"},
	{common.ErrInvalidToken, "invalid_token"},
	{common.ErrTokenExpired, "token_expired"},
	{common.ErrWrongPurpose, "wrong_token_purpose"},
	{common.ErrInvalidSetupToken, "invalid_setup_token"},
	{common.ErrInvalidDeviceID, "invalid_device_id"},
	{common.ErrDeviceNotFound, "device_not_found"},
	{common.ErrNotMember, "not_member"},
	{common.ErrInsufficientRole, "not_master"},
	{common.ErrAlreadyClaimed, "already_claimed"},
	{common.ErrRemovingMaster, "removing_master"},
	{common.ErrShareWithMaster, "share_with_master"},
	{common.ErrMemberNotFound, "member_not_found"},
	{common.ErrInvalidName, "invalid_name"},
	{common.ErrInvalidEndpoint, "invalid_endpoint"},
	{common.ErrInvalidContent, "invalid_content"},
	{common.ErrUnknownCommand, "unknown_command"},
	{common.ErrDispatchFailed, "dispatch_failed"},
}

type errorKind struct {
	err    error
	status int
	code   string
}

var errorKinds = []errorKind{
	{common.ErrorValidation, http.StatusBadRequest, "bad_request"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{common.ErrorForbidden, http.StatusForbidden, "forbidden"},
	{common.ErrorNotFound, http.StatusNotFound, "not_found"},
	{common.ErrorRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{common.ErrorLocked, http.StatusTooManyRequests, "account_locked"},
	{common.ErrorDependency, http.StatusInternalServerError, "dependency_failure"},
}

// statusFor maps an error to its HTTP status and a stable snake_case code.
func statusFor(err error) (int, string) {
	status, code := http.StatusInternalServerError, "internal_error"
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			status, code = k.status, k.code
			break
		}
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	return status, code
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	var locked *common.LockedError
	var limited *common.RateLimitError
	switch {
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.Remaining.Seconds()))))
	}

	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	message := err.Error()
	if code == "internal_error" {
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
