package appointments

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

type outcomeRecorder interface {
	IncrementBookingOutcome(result string)
	IncrementCancellation(result string)
}

type Service struct {
	repo    store.AppointmentRepository
	donors  store.DonorDirectory
	centers store.CenterDirectory

	recoveryDays int
	loc          *time.Location
	now          func() time.Time
	log          *slog.Logger
	outcomes     outcomeRecorder
}

type Option func(*Service)

// WithRecoveryDays sets the minimum number of days between two donations.
func WithRecoveryDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.recoveryDays = days
		}
	}
}

// WithLocation sets the zone in which slot dates and times are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithOutcomeRecorder(r outcomeRecorder) Option {
	return func(s *Service) {
		s.outcomes = r
	}
}

func NewService(repo store.AppointmentRepository, donors store.DonorDirectory, centers store.CenterDirectory, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		donors:       donors,
		centers:      centers,
		recoveryDays: domain.DefaultRecoveryDays,
		loc:          time.UTC,
		now:          time.Now,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = s.log.With(slog.String("component", "service.appointments"))
	return s
}

type CreateInput struct {
	DonorID        string
	CenterID       string
	Date           string
	Time           string
	IdempotencyKey string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	appt, err := s.create(ctx, in)
	s.recordBooking(err)
	if err != nil {
		s.logCreateFailure(in, err)
		return domain.Appointment{}, err
	}
	s.log.Info("appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("donor_id", appt.DonorID),
		slog.String("center_id", appt.CenterID),
		slog.String("date", domain.FormatDate(appt.Date)),
		slog.String("time", appt.Time.String()),
	)
	return appt, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	donorID := strings.TrimSpace(in.DonorID)
	if donorID == "" {
		return domain.Appointment{}, validationError("donor_id is required")
	}
	centerID := strings.TrimSpace(in.CenterID)
	if centerID == "" {
		return domain.Appointment{}, validationError("center_id is required")
	}

	if err := s.requireDonor(ctx, donorID); err != nil {
		return domain.Appointment{}, err
	}
	if _, err := s.lookupCenter(ctx, centerID); err != nil {
		return domain.Appointment{}, err
	}

	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}
	tod, err := domain.ParseTimeOfDay(in.Time)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}

	appt := domain.Appointment{
		DonorID:  donorID,
		CenterID: centerID,
		Date:     date,
		Time:     tod,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("donorslot:create_appointment:"+donorID+":"+key))

		existing, err := s.repo.FindByID(ctx, appt.ID)
		switch {
		case err == nil:
			if !existing.SameSlot(appt) {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.Appointment{}, err
		}
	}

	if err := domain.ValidateFuture(date, tod, s.now(), s.loc); err != nil {
		return domain.Appointment{}, err
	}

	history, err := s.repo.FindByDonor(ctx, donorID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := domain.ValidateInterval(date, history, s.recoveryDays); err != nil {
		return domain.Appointment{}, err
	}

	if err := checkNoConflict(ctx, s.repo, centerID, donorID, date, tod); err != nil {
		return domain.Appointment{}, err
	}

	// A concurrent request may have taken the slot since the check above; the
	// store reports that with the same conflict errors.
	return s.repo.InsertIfAbsent(ctx, appt)
}

// Cancel deletes an appointment owned by requestingDonorID.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID, requestingDonorID string) error {
	err := s.cancel(ctx, appointmentID, strings.TrimSpace(requestingDonorID))
	if s.outcomes != nil {
		s.outcomes.IncrementCancellation(resultLabel(err, "cancelled"))
	}
	if err != nil {
		return err
	}
	s.log.Info("appointment cancelled",
		slog.String("appointment_id", appointmentID.String()),
		slog.String("donor_id", requestingDonorID),
	)
	return nil
}

func (s *Service) cancel(ctx context.Context, appointmentID uuid.UUID, donorID string) error {
	if donorID == "" {
		return validationError("donor_id is required")
	}
	if appointmentID == uuid.Nil {
		return validationError("appointment_id is required")
	}

	appt, err := s.repo.FindByID(ctx, appointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("appointment", appointmentID.String())
	}
	if err != nil {
		return err
	}
	if appt.DonorID != donorID {
		s.log.Warn("cancel denied",
			slog.String("appointment_id", appointmentID.String()),
			slog.String("donor_id", donorID),
		)
		return ErrPermissionDenied
	}

	err = s.repo.Delete(ctx, appointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("appointment", appointmentID.String())
	}
	return err
}

// ListForDonor returns the donor's appointments, most recent slot first.
func (s *Service) ListForDonor(ctx context.Context, donorID string) ([]domain.Appointment, error) {
	donorID = strings.TrimSpace(donorID)
	if donorID == "" {
		return nil, validationError("donor_id is required")
	}
	if err := s.requireDonor(ctx, donorID); err != nil {
		return nil, err
	}

	appts, err := s.repo.FindByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.After(appts[j].Date)
		}
		return appts[i].Time > appts[j].Time
	})
	return appts, nil
}

// ListOccupiedSlots returns the booked times at a center on one date. It is
// for rendering a slot picker and has no effect on Create.
func (s *Service) ListOccupiedSlots(ctx context.Context, centerID, date string) ([]domain.TimeOfDay, error) {
	centerID = strings.TrimSpace(centerID)
	if centerID == "" {
		return nil, validationError("center_id is required")
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if _, err := s.lookupCenter(ctx, centerID); err != nil {
		return nil, err
	}
	return s.repo.FindOccupiedTimes(ctx, centerID, d)
}

func (s *Service) requireDonor(ctx context.Context, donorID string) error {
	ok, err := s.donors.DonorExists(ctx, donorID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("donor", donorID)
	}
	return nil
}

func (s *Service) lookupCenter(ctx context.Context, centerID string) (domain.Center, error) {
	c, err := s.centers.GetCenter(ctx, centerID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Center{}, notFound("center", centerID)
	}
	if err != nil {
		return domain.Center{}, err
	}
	return c, nil
}

func (s *Service) recordBooking(err error) {
	if s.outcomes != nil {
		s.outcomes.IncrementBookingOutcome(resultLabel(err, "booked"))
	}
}

func (s *Service) logCreateFailure(in CreateInput, err error) {
	attrs := []any{
		slog.String("donor_id", in.DonorID),
		slog.String("center_id", in.CenterID),
		slog.String("date", in.Date),
		slog.String("time", in.Time),
		slog.String("result", resultLabel(err, "")),
	}
	if isBusinessRejection(err) {
		s.log.Info("appointment rejected", attrs...)
		return
	}
	s.log.Error("appointment create failed", append(attrs, slog.Any("err", err))...)
}

// resultLabel names an error kind for metrics and logs.
func resultLabel(err error, success string) string {
	var vErr *ValidationError
	var nfErr *NotFoundError
	switch {
	case err == nil:
		return success
	case errors.As(err, &vErr):
		return "malformed_input"
	case errors.As(err, &nfErr), errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPastInstant):
		return "past_instant"
	case errors.Is(err, domain.ErrTooSoon):
		return "too_soon"
	case errors.Is(err, store.ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, store.ErrDonorDoubleBooked):
		return "donor_double_booked"
	case errors.Is(err, store.ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, store.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func isBusinessRejection(err error) bool {
	switch resultLabel(err, "") {
	case "unavailable", "error":
		return false
	default:
		return true
	}
}
