package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

const defaultKeyPrefix = "donorslot:"

// Store keeps appointments in Redis. InsertIfAbsent and Delete run as Lua
// scripts, so each is a single atomic step on the server.
type Store struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

type Option func(*Store)

// WithKeyPrefix namespaces every key the store touches.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client *goredis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) apptKey(id uuid.UUID) string {
	return s.prefix + "appt:" + id.String()
}

func (s *Store) slotKey(key string) string {
	return s.prefix + "slot:" + key
}

func (s *Store) donorIndexKey(donorID string) string {
	return s.prefix + "donor:" + donorID + ":appts"
}

func (s *Store) centerDayKey(centerID string, date time.Time) string {
	return s.prefix + "center:" + centerID + ":" + domain.FormatDate(date) + ":times"
}

func (s *Store) donorsKey() string {
	return s.prefix + "donors"
}

func (s *Store) centerKey(centerID string) string {
	return s.prefix + "centers:" + centerID
}

func (s *Store) appointmentKeys(a domain.Appointment) []string {
	return []string{
		s.apptKey(a.ID),
		s.slotKey(store.CenterSlotKey(a.CenterID, a.Date, a.Time)),
		s.slotKey(store.DonorSlotKey(a.DonorID, a.Date, a.Time)),
		s.donorIndexKey(a.DonorID),
		s.centerDayKey(a.CenterID, a.Date),
	}
}

func (s *Store) InsertIfAbsent(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now().UTC()
	}
	appt.Date = domain.DateOf(appt.Date)

	res, err := insertScript.Run(ctx, s.client, s.appointmentKeys(appt),
		appt.ID.String(),
		appt.DonorID,
		appt.CenterID,
		domain.FormatDate(appt.Date),
		appt.Time.String(),
		appt.CreatedAt.Format(time.RFC3339Nano),
	).Text()
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}

	switch res {
	case insertOK:
		return appt, nil
	case insertReplay:
		return s.FindByID(ctx, appt.ID)
	case insertIdempotency:
		return domain.Appointment{}, store.ErrIdempotencyConflict
	case insertSlotTaken:
		return domain.Appointment{}, store.ErrSlotTaken
	case insertDoubleBooked:
		return domain.Appointment{}, store.ErrDonorDoubleBooked
	default:
		return domain.Appointment{}, fmt.Errorf("unexpected insert script result %q", res)
	}
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	fields, err := s.client.HGetAll(ctx, s.apptKey(id)).Result()
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	if len(fields) == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return decodeAppointment(id, fields)
}

func (s *Store) FindByDonor(ctx context.Context, donorID string) ([]domain.Appointment, error) {
	ids, err := s.client.LRange(ctx, s.donorIndexKey(donorID), 0, -1).Result()
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]domain.Appointment, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	parsed := make([]uuid.UUID, 0, len(ids))
	cmds := make([]*goredis.MapStringStringCmd, 0, len(ids))
	_, err = s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			parsed = append(parsed, id)
			cmds = append(cmds, p.HGetAll(ctx, s.apptKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		// The index may briefly lag a concurrent delete.
		if len(fields) == 0 {
			continue
		}
		a, err := decodeAppointment(parsed[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) FindOccupiedTimes(ctx context.Context, centerID string, date time.Time) ([]domain.TimeOfDay, error) {
	members, err := s.client.SMembers(ctx, s.centerDayKey(centerID, date)).Result()
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.TimeOfDay, 0, len(members))
	for _, m := range members {
		out = append(out, domain.TimeOfDay(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	removed, err := deleteScript.Run(ctx, s.client, s.appointmentKeys(a), a.ID.String(), a.Time.String()).Int()
	if err != nil {
		return mapError(err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CenterSlotTaken(ctx context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return s.exists(ctx, s.slotKey(store.CenterSlotKey(centerID, date, tod)))
}

func (s *Store) DonorSlotTaken(ctx context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	return s.exists(ctx, s.slotKey(store.DonorSlotKey(donorID, date, tod)))
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, mapError(err)
	}
	return n > 0, nil
}

func (s *Store) DonorExists(ctx context.Context, donorID string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.donorsKey(), donorID).Result()
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (s *Store) GetCenter(ctx context.Context, centerID string) (domain.Center, error) {
	fields, err := s.client.HGetAll(ctx, s.centerKey(centerID)).Result()
	if err != nil {
		return domain.Center{}, mapError(err)
	}
	if len(fields) == 0 {
		return domain.Center{}, store.ErrNotFound
	}
	return domain.Center{
		ID:    centerID,
		Name:  fields["name"],
		City:  fields["city"],
		State: fields["state"],
	}, nil
}

func (s *Store) SeedDonors(ctx context.Context, donors ...domain.Donor) error {
	if len(donors) == 0 {
		return nil
	}
	values := make([]any, 0, len(donors)*2)
	for _, d := range donors {
		values = append(values, d.ID, d.Name)
	}
	return mapError(s.client.HSet(ctx, s.donorsKey(), values...).Err())
}

func (s *Store) SeedCenters(ctx context.Context, centers ...domain.Center) error {
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, c := range centers {
			p.HSet(ctx, s.centerKey(c.ID), "name", c.Name, "city", c.City, "state", c.State)
		}
		return nil
	})
	return mapError(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decodeAppointment(id uuid.UUID, fields map[string]string) (domain.Appointment, error) {
	date, err := domain.ParseDate(fields["date"])
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("appointment %s: %w", id, err)
	}
	tod, err := domain.ParseTimeOfDay(fields["time"])
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("appointment %s: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("appointment %s: %w", id, err)
	}
	return domain.Appointment{
		ID:        id,
		DonorID:   fields["donor_id"],
		CenterID:  fields["center_id"],
		Date:      date,
		Time:      tod,
		CreatedAt: createdAt,
	}, nil
}

// mapError wraps connection-level failures in store.ErrUnavailable. Error
// replies from the server and caller context errors are returned as is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var replyErr goredis.Error
	if errors.As(err, &replyErr) {
		return err
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}
