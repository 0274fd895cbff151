// Package storetest holds the behavioral suite every store backend must pass.
package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

// Seeder is implemented by backends whose directories can be populated for tests.
type Seeder interface {
	SeedDonors(ctx context.Context, donors ...domain.Donor) error
	SeedCenters(ctx context.Context, centers ...domain.Center) error
}

// BackendFactory returns a fresh, empty backend for each test.
type BackendFactory func() (store.Backend, Seeder)

// BackendSuite exercises the store.Backend contract.
type BackendSuite struct {
	suite.Suite

	NewBackend BackendFactory

	backend store.Backend
	ctx     context.Context
}

func (s *BackendSuite) SetupTest() {
	s.ctx = context.Background()
	var seeder Seeder
	s.backend, seeder = s.NewBackend()
	s.Require().NoError(seeder.SeedDonors(s.ctx,
		domain.Donor{ID: "d1", Name: "Ana"},
		domain.Donor{ID: "d2", Name: "Bruno"},
	))
	s.Require().NoError(seeder.SeedCenters(s.ctx,
		domain.Center{ID: "c1", Name: "Hemocentro Central", City: "Recife", State: "PE"},
		domain.Center{ID: "c2", Name: "Posto Boa Viagem", City: "Recife", State: "PE"},
	))
}

func (s *BackendSuite) TearDownTest() {
	if s.backend != nil {
		s.NoError(s.backend.Close())
	}
}

func (s *BackendSuite) appt(donorID, centerID, date string, tod domain.TimeOfDay) domain.Appointment {
	d, err := domain.ParseDate(date)
	s.Require().NoError(err)
	return domain.Appointment{DonorID: donorID, CenterID: centerID, Date: d, Time: tod}
}

func (s *BackendSuite) TestDirectories() {
	s.Run("known donor exists", func() {
		ok, err := s.backend.DonorExists(s.ctx, "d1")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("unknown donor does not exist", func() {
		ok, err := s.backend.DonorExists(s.ctx, "nobody")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("center details are returned", func() {
		c, err := s.backend.GetCenter(s.ctx, "c1")
		s.Require().NoError(err)
		s.Equal("Hemocentro Central", c.Name)
		s.Equal("Recife", c.City)
		s.Equal("PE", c.State)
	})

	s.Run("unknown center is not found", func() {
		_, err := s.backend.GetCenter(s.ctx, "nowhere")
		s.ErrorIs(err, store.ErrNotFound)
	})
}

func (s *BackendSuite) TestInsertIfAbsent() {
	s.Run("assigns id and persists", func() {
		got, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c1", "2030-01-01", "09:00"))
		s.Require().NoError(err)
		s.NotEqual(uuid.Nil, got.ID)

		found, err := s.backend.FindByID(s.ctx, got.ID)
		s.Require().NoError(err)
		s.Equal("d1", found.DonorID)
		s.Equal("c1", found.CenterID)
		s.Equal("2030-01-01", domain.FormatDate(found.Date))
		s.Equal(domain.TimeOfDay("09:00"), found.Time)
	})

	s.Run("center slot taken", func() {
		_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d2", "c1", "2030-01-01", "09:00"))
		s.ErrorIs(err, store.ErrSlotTaken)
	})

	s.Run("donor double booked at another center", func() {
		_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c2", "2030-01-01", "09:00"))
		s.ErrorIs(err, store.ErrDonorDoubleBooked)
	})

	s.Run("center slot reported before donor slot", func() {
		_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c1", "2030-01-01", "09:00"))
		s.ErrorIs(err, store.ErrSlotTaken)
	})

	s.Run("different time at same center is free", func() {
		_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d2", "c1", "2030-01-01", "09:30"))
		s.NoError(err)
	})
}

func (s *BackendSuite) TestInsertIfAbsent_ReplaySameID() {
	a := s.appt("d1", "c1", "2030-02-01", "10:00")
	a.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("replay"))

	first, err := s.backend.InsertIfAbsent(s.ctx, a)
	s.Require().NoError(err)

	second, err := s.backend.InsertIfAbsent(s.ctx, a)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	changed := a
	changed.Time = "11:00"
	_, err = s.backend.InsertIfAbsent(s.ctx, changed)
	s.ErrorIs(err, store.ErrIdempotencyConflict)

	appts, err := s.backend.FindByDonor(s.ctx, "d1")
	s.Require().NoError(err)
	s.Len(appts, 1)
}

func (s *BackendSuite) TestConcurrentInsertSameSlot() {
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
		other     []error
	)
	candidates := []domain.Appointment{
		s.appt("d1", "c1", "2030-03-02", "09:00"),
		s.appt("d2", "c1", "2030-03-02", "09:00"),
	}
	for i := range workers {
		wg.Add(1)
		go func(a domain.Appointment) {
			defer wg.Done()
			_, err := s.backend.InsertIfAbsent(s.ctx, a)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrSlotTaken):
				taken++
			default:
				other = append(other, err)
			}
		}(candidates[i%2])
	}
	wg.Wait()

	s.Empty(other)
	s.Equal(1, successes)
	s.Equal(workers-1, taken)

	date, err := domain.ParseDate("2030-03-02")
	s.Require().NoError(err)
	times, err := s.backend.FindOccupiedTimes(s.ctx, "c1", date)
	s.Require().NoError(err)
	s.Equal([]domain.TimeOfDay{"09:00"}, times)
}

func (s *BackendSuite) TestFindByDonor_InsertionOrder() {
	for _, date := range []string{"2030-05-01", "2030-01-01", "2030-03-01"} {
		_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c1", date, "08:00"))
		s.Require().NoError(err)
	}
	_, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d2", "c2", "2030-01-01", "08:00"))
	s.Require().NoError(err)

	appts, err := s.backend.FindByDonor(s.ctx, "d1")
	s.Require().NoError(err)
	s.Require().Len(appts, 3)
	s.Equal("2030-05-01", domain.FormatDate(appts[0].Date))
	s.Equal("2030-01-01", domain.FormatDate(appts[1].Date))
	s.Equal("2030-03-01", domain.FormatDate(appts[2].Date))

	none, err := s.backend.FindByDonor(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *BackendSuite) TestFindOccupiedTimes() {
	for _, a := range []domain.Appointment{
		s.appt("d1", "c1", "2030-04-10", "14:00"),
		s.appt("d2", "c1", "2030-04-10", "08:30"),
		s.appt("d1", "c2", "2030-04-10", "10:00"),
		s.appt("d2", "c1", "2030-04-11", "10:00"),
	} {
		_, err := s.backend.InsertIfAbsent(s.ctx, a)
		s.Require().NoError(err)
	}

	date, err := domain.ParseDate("2030-04-10")
	s.Require().NoError(err)

	times, err := s.backend.FindOccupiedTimes(s.ctx, "c1", date)
	s.Require().NoError(err)
	s.Equal([]domain.TimeOfDay{"08:30", "14:00"}, times)

	empty, err := s.backend.FindOccupiedTimes(s.ctx, "c3", date)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *BackendSuite) TestDelete() {
	a, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c1", "2030-06-01", "09:00"))
	s.Require().NoError(err)

	s.Require().NoError(s.backend.Delete(s.ctx, a.ID))
	s.ErrorIs(s.backend.Delete(s.ctx, a.ID), store.ErrNotFound)

	_, err = s.backend.FindByID(s.ctx, a.ID)
	s.ErrorIs(err, store.ErrNotFound)

	taken, err := s.backend.CenterSlotTaken(s.ctx, "c1", a.Date, a.Time)
	s.Require().NoError(err)
	s.False(taken)

	_, err = s.backend.InsertIfAbsent(s.ctx, s.appt("d2", "c1", "2030-06-01", "09:00"))
	s.NoError(err, "freed slot can be booked again")
}

func (s *BackendSuite) TestSlotProbes() {
	a, err := s.backend.InsertIfAbsent(s.ctx, s.appt("d1", "c1", "2030-07-01", "09:00"))
	s.Require().NoError(err)

	taken, err := s.backend.CenterSlotTaken(s.ctx, "c1", a.Date, "09:00")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.backend.DonorSlotTaken(s.ctx, "d1", a.Date, "09:00")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.backend.DonorSlotTaken(s.ctx, "d2", a.Date, "09:00")
	s.Require().NoError(err)
	s.False(taken)

	taken, err = s.backend.CenterSlotTaken(s.ctx, "c1", a.Date.AddDate(0, 0, 1), "09:00")
	s.Require().NoError(err)
	s.False(taken)
}
