package lending

import "errors"

var (
	ErrNotFound          = errors.New("application not found")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrOpenApplication   = errors.New("client already has an open application for this product")

	// ErrConcurrencyConflict is surfaced after a bounded number of
	// optimistic-update retries has been exhausted.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrStoreUnavailable wraps infrastructure faults from the storage
	// collaborator. No partial state is committed when it is returned.
	ErrStoreUnavailable = errors.New("store unavailable")
)
