package domain

import "errors"

var (
	// ErrStoreUnavailable means the backing store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrWriteFailed means the store rejected a write.
	ErrWriteFailed = errors.New("write failed")
	ErrNotFound    = errors.New("not found")
	// ErrDuplicateBooking is a write failure caused by an identical booking
	// already holding the same asset, day and interval.
	ErrDuplicateBooking = errors.New("booking already exists for this slot")

	ErrSlotUnavailable     = errors.New("slot is not available")
	ErrAvailabilityUnknown = errors.New("availability could not be determined")
)

// IsDomainError reports whether err describes the data rather than the
// store's health. Such errors are final and never trigger failover.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateBooking)
}
