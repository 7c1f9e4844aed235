package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrInvalidAmount is returned for non-positive money amounts.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrInvalidTerm is returned for loan terms outside the supported range.
	ErrInvalidTerm = errors.New("invalid_term")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change a system-generated row directly
	ErrImmutable = errors.New("immutable")
)
