package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Appointment is a single reserved slot. It is never updated in place; a
// changed slot is a cancel followed by a new create.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	DonorID   string    `bun:"donor_id,notnull"`
	CenterID  string    `bun:"center_id,notnull"`
	Date      time.Time `bun:"slot_date,notnull,type:date"`
	Time      TimeOfDay `bun:"slot_time,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Start is the instant the slot begins in loc.
func (a Appointment) Start(loc *time.Location) time.Time {
	return SlotStart(a.Date, a.Time, loc)
}

// Completed reports whether the slot has already begun at now. There is no
// stored status; this is always derived from the slot itself.
func (a Appointment) Completed(now time.Time, loc *time.Location) bool {
	return !a.Start(loc).After(now)
}

// SameSlot reports whether two appointments describe the same booking.
func (a Appointment) SameSlot(b Appointment) bool {
	return a.DonorID == b.DonorID &&
		a.CenterID == b.CenterID &&
		a.Date.Equal(b.Date) &&
		a.Time == b.Time
}

type Center struct {
	bun.BaseModel `bun:"table:centers"`

	ID    string `bun:"id,pk"`
	Name  string `bun:"name,notnull"`
	City  string `bun:"city,notnull"`
	State string `bun:"state,notnull"`
}

type Donor struct {
	bun.BaseModel `bun:"table:donors"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}
