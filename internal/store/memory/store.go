package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

// Store keeps appointments, donors and centers in process memory. A single
// mutex spans the check and the insert of InsertIfAbsent.
type Store struct {
	mu sync.RWMutex

	appts   map[uuid.UUID]domain.Appointment
	order   []uuid.UUID
	slots   map[string]uuid.UUID
	donors  map[string]domain.Donor
	centers map[string]domain.Center

	now func() time.Time
}

func New() *Store {
	return &Store{
		appts:   make(map[uuid.UUID]domain.Appointment),
		slots:   make(map[string]uuid.UUID),
		donors:  make(map[string]domain.Donor),
		centers: make(map[string]domain.Center),
		now:     time.Now,
	}
}

func (s *Store) SeedDonors(_ context.Context, donors ...domain.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range donors {
		s.donors[d.ID] = d
	}
	return nil
}

func (s *Store) SeedCenters(_ context.Context, centers ...domain.Center) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range centers {
		s.centers[c.ID] = c
	}
	return nil
}

func (s *Store) DonorExists(_ context.Context, donorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.donors[donorID]
	return ok, nil
}

func (s *Store) GetCenter(_ context.Context, centerID string) (domain.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.centers[centerID]
	if !ok {
		return domain.Center{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.InsertChecked(ctx, lockedStore{s}, appt)
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) FindByDonor(_ context.Context, donorID string) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Appointment, 0)
	for _, id := range s.order {
		if a := s.appts[id]; a.DonorID == donorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) FindOccupiedTimes(_ context.Context, centerID string, date time.Time) ([]domain.TimeOfDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TimeOfDay, 0)
	for _, a := range s.appts {
		if a.CenterID == centerID && a.Date.Equal(domain.DateOf(date)) {
			out = append(out, a.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.appts, id)
	delete(s.slots, store.CenterSlotKey(a.CenterID, a.Date, a.Time))
	delete(s.slots, store.DonorSlotKey(a.DonorID, a.Date, a.Time))
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) CenterSlotTaken(_ context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slots[store.CenterSlotKey(centerID, date, tod)]
	return ok, nil
}

func (s *Store) DonorSlotTaken(_ context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slots[store.DonorSlotKey(donorID, date, tod)]
	return ok, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// lockedStore is the BookingTx view used while s.mu is held for writing.
type lockedStore struct {
	s *Store
}

func (l lockedStore) FindAppointment(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := l.s.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (l lockedStore) CenterSlotTaken(_ context.Context, centerID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	_, ok := l.s.slots[store.CenterSlotKey(centerID, date, tod)]
	return ok, nil
}

func (l lockedStore) DonorSlotTaken(_ context.Context, donorID string, date time.Time, tod domain.TimeOfDay) (bool, error) {
	_, ok := l.s.slots[store.DonorSlotKey(donorID, date, tod)]
	return ok, nil
}

func (l lockedStore) InsertAppointment(_ context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = l.s.now().UTC()
	}
	appt.Date = domain.DateOf(appt.Date)

	l.s.appts[appt.ID] = appt
	l.s.order = append(l.s.order, appt.ID)
	l.s.slots[store.CenterSlotKey(appt.CenterID, appt.Date, appt.Time)] = appt.ID
	l.s.slots[store.DonorSlotKey(appt.DonorID, appt.Date, appt.Time)] = appt.ID
	return appt, nil
}
