package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"donorslot/internal/domain"
)

// BookingTx is the appointment collection as seen from inside a section that
// already excludes concurrent writers of the same slot keys, such as a
// database transaction holding the slot locks.
type BookingTx interface {
	FindAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error)
	DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}

// InsertChecked runs the check-and-insert sequence of InsertIfAbsent. It is
// only atomic when tx excludes concurrent writers of the slot keys.
func InsertChecked(ctx context.Context, tx BookingTx, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID != uuid.Nil {
		existing, err := tx.FindAppointment(ctx, appt.ID)
		switch {
		case err == nil:
			if !existing.SameSlot(appt) {
				return domain.Appointment{}, ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, ErrNotFound):
			return domain.Appointment{}, err
		}
	}

	taken, err := tx.CenterSlotTaken(ctx, appt.CenterID, appt.Date, appt.Time)
	if err != nil {
		return domain.Appointment{}, err
	}
	if taken {
		return domain.Appointment{}, ErrSlotTaken
	}

	taken, err = tx.DonorSlotTaken(ctx, appt.DonorID, appt.Date, appt.Time)
	if err != nil {
		return domain.Appointment{}, err
	}
	if taken {
		return domain.Appointment{}, ErrDonorDoubleBooked
	}

	return tx.InsertAppointment(ctx, appt)
}
