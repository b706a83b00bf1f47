package service

import "errors"

// Client errors. Endpoint configuration problems are distinguished from
// transport problems so callers can report the former once instead of on
// every scan cycle.
var (
	// ErrNoEndpoint is returned when a client is used without a configured
	// endpoint URL. This is a configuration error, not a transient failure.
	ErrNoEndpoint = errors.New("service endpoint not configured")

	// ErrBadStatus is returned (wrapped, with the status code) when a
	// service responds with a non-2xx status after retries.
	ErrBadStatus = errors.New("service returned non-success status")

	// ErrEmptyBatch is returned when a batch call is made with no items.
	ErrEmptyBatch = errors.New("empty batch: nothing to send")
)
