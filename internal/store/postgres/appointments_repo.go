package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) InsertIfAbsent(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.Date = domain.DateOf(appt.Date)

	keys := []string{
		store.CenterSlotKey(appt.CenterID, appt.Date, appt.Time),
		store.DonorSlotKey(appt.DonorID, appt.Date, appt.Time),
	}
	if appt.ID != uuid.Nil {
		keys = append(keys, "appointment:"+appt.ID.String())
	}

	var out domain.Appointment
	err := r.InSlotTransaction(ctx, keys, func(ctx context.Context, tx store.BookingTx) error {
		a, err := store.InsertChecked(ctx, tx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return out, nil
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, err := findAppointment(ctx, r.db, id)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return a, nil
}

func (r *AppointmentRepo) FindByDonor(ctx context.Context, donorID string) ([]domain.Appointment, error) {
	rows := make([]domain.Appointment, 0)
	err := r.db.NewSelect().
		Model(&rows).
		Where("donor_id = ?", donorID).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) FindOccupiedTimes(ctx context.Context, centerID string, date time.Time) ([]domain.TimeOfDay, error) {
	times := make([]domain.TimeOfDay, 0)
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("slot_time").
		Where("center_id = ?", centerID).
		Where("slot_date = ?", domain.FormatDate(date)).
		OrderExpr("slot_time ASC").
		Scan(ctx, &times)
	if err != nil {
		return nil, mapError(err)
	}
	return times, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	ok, err := centerSlotTaken(ctx, r.db, centerID, date, tod)
	return ok, mapError(err)
}

func (r *AppointmentRepo) DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	ok, err := donorSlotTaken(ctx, r.db, donorID, date, tod)
	return ok, mapError(err)
}

// InSlotTransaction runs fn in a transaction holding an advisory lock on
// every key. Keys are locked in sorted order so two bookings sharing keys
// cannot deadlock.
func (r *AppointmentRepo) InSlotTransaction(ctx context.Context, keys []string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, key := range sorted {
			if err := lockSlotKey(ctx, tx, key); err != nil {
				return err
			}
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockSlotKey(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

func (b bookingTx) FindAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return findAppointment(ctx, b.tx, id)
}

func (b bookingTx) CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return centerSlotTaken(ctx, b.tx, centerID, date, tod)
}

func (b bookingTx) DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return donorSlotTaken(ctx, b.tx, donorID, date, tod)
}

func (b bookingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:        appt.ID,
		DonorID:   appt.DonorID,
		CenterID:  appt.CenterID,
		Date:      domain.DateOf(appt.Date),
		Time:      appt.Time,
		CreatedAt: appt.CreatedAt,
	}

	if _, err := b.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func findAppointment(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

func centerSlotTaken(ctx context.Context, db bun.IDB, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("center_id = ?", centerID).
		Where("slot_date = ?", domain.FormatDate(date)).
		Where("slot_time = ?", tod).
		Exists(ctx)
}

func donorSlotTaken(ctx context.Context, db bun.IDB, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("donor_id = ?", donorID).
		Where("slot_date = ?", domain.FormatDate(date)).
		Where("slot_time = ?", tod).
		Exists(ctx)
}
