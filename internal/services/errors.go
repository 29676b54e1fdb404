package services

import "errors"

// ValidationError reports a client-supplied message the relay refuses to send.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ErrNotConfigured is returned when no upstream credential was provided at startup.
var ErrNotConfigured = errors.New("chat service is not configured")
