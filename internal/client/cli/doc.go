// Package cli implements playerctl, the PlayerHub command-line client.
//
// Each invocation runs one subcommand (enroll, login, devices, claim, share,
// command, ...) against the HTTP API. The session token from enroll or
// login is cached on disk and reused by later invocations. PINs are read
// from the terminal without echo.
package cli
