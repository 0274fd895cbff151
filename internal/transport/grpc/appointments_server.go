package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"donorslot/internal/domain"
	"donorslot/internal/service/appointments"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
}

var _ AppointmentsServiceServer = (*AppointmentsServer)(nil)

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID, requestingDonorID string) error
	ListForDonor(ctx context.Context, donorID string) ([]domain.Appointment, error)
	ListHistory(ctx context.Context, donorID string) ([]appointments.HistoryEntry, error)
	ListOccupiedSlots(ctx context.Context, centerID, date string) ([]domain.TimeOfDay, error)
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
}

func (s *AppointmentsServer) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	appt, err := s.svc.Create(ctx, appointments.CreateInput{
		DonorID:        req.DonorID,
		CenterID:       req.CenterID,
		Date:           req.Date,
		Time:           req.Time,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, s.rpcError(log, err, slog.String("donor_id", req.DonorID), slog.String("center_id", req.CenterID))
	}

	return &CreateAppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*CancelAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("donor_id", req.DonorID))
		return nil, newStatus(codes.InvalidArgument, ReasonMalformedInput, "appointment_id must be a UUID", nil).Err()
	}

	if err := s.svc.Cancel(ctx, id, req.DonorID); err != nil {
		return nil, s.rpcError(log, err, slog.String("appointment_id", id.String()), slog.String("donor_id", req.DonorID))
	}
	return &CancelAppointmentResponse{}, nil
}

func (s *AppointmentsServer) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	appts, err := s.svc.ListForDonor(ctx, req.DonorID)
	if err != nil {
		return nil, s.rpcError(log, err, slog.String("donor_id", req.DonorID))
	}

	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toWireAppointment(a))
	}
	log.Debug("appointments listed", slog.String("donor_id", req.DonorID), slog.Int("count", len(out)))

	return &ListAppointmentsResponse{Appointments: out}, nil
}

func (s *AppointmentsServer) ListHistory(ctx context.Context, req *ListHistoryRequest) (*ListHistoryResponse, error) {
	log := s.log.With(slog.String("rpc", "ListHistory"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	entries, err := s.svc.ListHistory(ctx, req.DonorID)
	if err != nil {
		return nil, s.rpcError(log, err, slog.String("donor_id", req.DonorID))
	}

	out := make([]*HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, &HistoryEntry{
			Appointment: toWireAppointment(e.Appointment),
			Center: &Center{
				ID:    e.Center.ID,
				Name:  e.Center.Name,
				City:  e.Center.City,
				State: e.Center.State,
			},
			Completed: e.Completed,
		})
	}
	log.Debug("history listed", slog.String("donor_id", req.DonorID), slog.Int("count", len(out)))

	return &ListHistoryResponse{Entries: out}, nil
}

func (s *AppointmentsServer) ListOccupiedSlots(ctx context.Context, req *ListOccupiedSlotsRequest) (*ListOccupiedSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListOccupiedSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	times, err := s.svc.ListOccupiedSlots(ctx, req.CenterID, req.Date)
	if err != nil {
		return nil, s.rpcError(log, err, slog.String("center_id", req.CenterID), slog.String("date", req.Date))
	}

	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, t.String())
	}
	return &ListOccupiedSlotsResponse{Times: out}, nil
}

// rpcError logs err at a level matching its kind and converts it to a status.
func (s *AppointmentsServer) rpcError(log *slog.Logger, err error, attrs ...any) error {
	st := statusFromError(err)
	reason := reasonOf(st)
	attrs = append(attrs, slog.String("reason", reason))

	switch st.Code() {
	case codes.Internal, codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		log.Error("request failed", append(attrs, slog.Any("err", err))...)
	case codes.InvalidArgument:
		log.Warn("invalid request", append(attrs, slog.Any("err", err))...)
	default:
		log.Info("request rejected", attrs...)
	}
	return st.Err()
}

func toWireAppointment(a domain.Appointment) *Appointment {
	out := &Appointment{
		ID:       a.ID.String(),
		DonorID:  a.DonorID,
		CenterID: a.CenterID,
		Date:     domain.FormatDate(a.Date),
		Time:     a.Time.String(),
	}
	if !a.CreatedAt.IsZero() {
		out.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}
