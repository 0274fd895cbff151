package store

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrSlotTaken           = errors.New("slot already reserved at this center")
	ErrDonorDoubleBooked   = errors.New("donor already has an appointment at this date and time")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// ErrUnavailable wraps backend I/O faults. It is the only store error a
	// caller may retry.
	ErrUnavailable = errors.New("store unavailable")
)

// IsConflict reports whether err is one of the slot uniqueness violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrDonorDoubleBooked)
}
