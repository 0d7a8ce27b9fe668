// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Sentinels matched with errors.Is by stores and the CLI.
var (
	// ErrUnauthenticated indicates no session token is available; no request was sent.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRequestFailed indicates the request could not complete (transport or decoding failure).
	ErrRequestFailed = errors.New("request failed")

	// ErrAPI indicates the backend answered with a non-success envelope code.
	ErrAPI = errors.New("api error")

	// ErrNotFound indicates the task is not present on the loaded page.
	ErrNotFound = errors.New("not found")
)
