package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"donorslot/internal/domain"
)

// OpObserver receives the latency and result of every store call.
type OpObserver interface {
	ObserveStoreOp(backend, op string, d time.Duration, err error)
}

// Instrumented reports every Backend call to an OpObserver.
type Instrumented struct {
	next    Backend
	backend string
	obs     OpObserver
}

func NewInstrumented(next Backend, backend string, obs OpObserver) *Instrumented {
	return &Instrumented{next: next, backend: backend, obs: obs}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	if i.obs != nil {
		i.obs.ObserveStoreOp(i.backend, op, time.Since(start), err)
	}
}

func (i *Instrumented) InsertIfAbsent(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	start := time.Now()
	out, err := i.next.InsertIfAbsent(ctx, appt)
	i.observe("insert_if_absent", start, err)
	return out, err
}

func (i *Instrumented) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	start := time.Now()
	out, err := i.next.FindByID(ctx, id)
	i.observe("find_by_id", start, err)
	return out, err
}

func (i *Instrumented) FindByDonor(ctx context.Context, donorID string) ([]domain.Appointment, error) {
	start := time.Now()
	out, err := i.next.FindByDonor(ctx, donorID)
	i.observe("find_by_donor", start, err)
	return out, err
}

func (i *Instrumented) FindOccupiedTimes(ctx context.Context, centerID string, date time.Time) ([]domain.TimeOfDay, error) {
	start := time.Now()
	out, err := i.next.FindOccupiedTimes(ctx, centerID, date)
	i.observe("find_occupied_times", start, err)
	return out, err
}

func (i *Instrumented) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := i.next.Delete(ctx, id)
	i.observe("delete", start, err)
	return err
}

func (i *Instrumented) CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	start := time.Now()
	ok, err := i.next.CenterSlotTaken(ctx, centerID, date, tod)
	i.observe("center_slot_taken", start, err)
	return ok, err
}

func (i *Instrumented) DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	start := time.Now()
	ok, err := i.next.DonorSlotTaken(ctx, donorID, date, tod)
	i.observe("donor_slot_taken", start, err)
	return ok, err
}

func (i *Instrumented) DonorExists(ctx context.Context, donorID string) (bool, error) {
	start := time.Now()
	ok, err := i.next.DonorExists(ctx, donorID)
	i.observe("donor_exists", start, err)
	return ok, err
}

func (i *Instrumented) GetCenter(ctx context.Context, centerID string) (domain.Center, error) {
	start := time.Now()
	c, err := i.next.GetCenter(ctx, centerID)
	i.observe("get_center", start, err)
	return c, err
}

func (i *Instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
