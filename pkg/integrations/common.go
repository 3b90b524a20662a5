package integrations

import "errors"

var (
	// ErrNotFound marks a 404 from any upstream: an unknown user, package
	// or search endpoint.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork wraps transport failures (timeouts, connection errors).
	ErrNetwork = errors.New("network error")
)
