package model

import "errors"

// Error kinds shared by every layer. Callers match them with errors.Is.
var (
	// ErrInvalidInput marks user-correctable request problems. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageFailure marks a failed or unavailable backend. The write is
	// not committed and may be retried.
	ErrStorageFailure = errors.New("storage failure")
	// ErrObserverDelivery marks a transport failure local to one observer.
	ErrObserverDelivery = errors.New("observer delivery failure")
)
