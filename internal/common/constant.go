// Package common contains shared constants and sentinel errors used across
// PlayerHub components.
package common

// AuthorizationHeaderName carries the session token as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix expected in AuthorizationHeaderName.
const BearerPrefix = "Bearer "
