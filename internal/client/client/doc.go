// Package client talks to the PlayerHub HTTP API.
//
// HTTPClient implements Client over net/http. It keeps the session token
// set with SetToken and sends it as a Bearer header on device routes.
//
// Non-2xx answers come back as *APIError, which unwraps to the shared
// error kinds in internal/common (and to ErrUnauthorized on 401), so callers
// can use errors.Is. Connection failures are reported as ErrUnavailable.
package client
