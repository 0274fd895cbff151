package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"donorslot/internal/domain"
)

// AppointmentRepository is the durable appointment collection.
//
// InsertIfAbsent is the only write path that may create an appointment and
// must check both slot uniqueness constraints and insert as one atomic step.
// Re-inserting an identical appointment under the same ID returns the stored
// row; a different appointment under an existing ID fails with
// ErrIdempotencyConflict.
type AppointmentRepository interface {
	InsertIfAbsent(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	FindByDonor(ctx context.Context, donorID string) ([]domain.Appointment, error)
	FindOccupiedTimes(ctx context.Context, centerID string, date time.Time) ([]domain.TimeOfDay, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error)
	DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error)
}

// DonorDirectory resolves donor identities owned outside the scheduler.
type DonorDirectory interface {
	DonorExists(ctx context.Context, donorID string) (bool, error)
}

// CenterDirectory resolves donation centers owned outside the scheduler.
// GetCenter returns ErrNotFound for unknown ids.
type CenterDirectory interface {
	GetCenter(ctx context.Context, centerID string) (domain.Center, error)
}

// Backend bundles the collections a single storage engine serves.
type Backend interface {
	AppointmentRepository
	DonorDirectory
	CenterDirectory

	Ping(ctx context.Context) error
	Close() error
}

// CenterSlotKey and DonorSlotKey name the two uniqueness keys of a slot.
// Backends that lock or index by key use these so they agree on identity.
func CenterSlotKey(centerID string, date time.Time, tod domain.TimeOfDay) string {
	return "center:" + centerID + ":" + domain.FormatDate(date) + ":" + tod.String()
}

func DonorSlotKey(donorID string, date time.Time, tod domain.TimeOfDay) string {
	return "donor:" + donorID + ":" + domain.FormatDate(date) + ":" + tod.String()
}
