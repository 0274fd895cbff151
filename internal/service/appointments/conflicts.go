package appointments

import (
	"context"
	"time"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

type slotProbe interface {
	CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error)
	DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error)
}

// checkNoConflict is advisory: two concurrent requests can both pass it.
// InsertIfAbsent is what actually guarantees uniqueness. A taken center slot
// is reported ahead of a donor double booking.
func checkNoConflict(ctx context.Context, probe slotProbe, centerID, donorID string, date time.Time, tod domain.TimeOfDay) error {
	taken, err := probe.CenterSlotTaken(ctx, centerID, date, tod)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrSlotTaken
	}

	taken, err = probe.DonorSlotTaken(ctx, donorID, date, tod)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrDonorDoubleBooked
	}
	return nil
}
