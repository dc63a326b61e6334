package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidDuration is returned for suggestion requests without a positive duration.
	ErrInvalidDuration = errors.New("durationMinutes must be a positive number of minutes")
	// ErrAuthDisabled is returned by identity operations when accounts are off.
	ErrAuthDisabled = errors.New("accounts are disabled")
	// ErrUnauthenticated is returned when a request carries no usable credentials.
	ErrUnauthenticated = errors.New("authentication required")
)
