package djp

import "github.com/cockroachdb/errors"

var (
	// ErrUnavailable means DJP could not be reached.
	ErrUnavailable = errors.New("djp unavailable")
	// ErrTimeout means DJP did not answer in time. It is also marked ErrUnavailable.
	ErrTimeout = errors.New("djp timeout")
	// ErrBadResponse means DJP answered with something other than a validation result.
	ErrBadResponse = errors.New("djp bad response")
	// ErrUntrustedURL means the URL does not point at an allowed DJP host.
	ErrUntrustedURL = errors.New("untrusted djp url")
)
