// Package sentinel defines storage-level facts.
//
// Stores return these (usually wrapped with fmt.Errorf("...: %w")) and services
// translate them into coded domain errors. They never reach HTTP responses
// directly.
package sentinel

import "errors"

var (
	// ErrNotFound: the record does not exist or has already expired.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the record exists but cannot move to the requested state.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
