package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"donorslot/internal/domain"
	"donorslot/internal/service/appointments"
	"donorslot/internal/store"
	"donorslot/internal/store/memory"
)

type fakeAppointmentsService struct {
	createFn   func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	cancelFn   func(ctx context.Context, appointmentID uuid.UUID, donorID string) error
	listFn     func(ctx context.Context, donorID string) ([]domain.Appointment, error)
	historyFn  func(ctx context.Context, donorID string) ([]appointments.HistoryEntry, error)
	occupiedFn func(ctx context.Context, centerID, date string) ([]domain.TimeOfDay, error)
}

func (f *fakeAppointmentsService) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointmentsService) Cancel(ctx context.Context, appointmentID uuid.UUID, donorID string) error {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, appointmentID, donorID)
}

func (f *fakeAppointmentsService) ListForDonor(ctx context.Context, donorID string) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("ListForDonor not configured")
	}
	return f.listFn(ctx, donorID)
}

func (f *fakeAppointmentsService) ListHistory(ctx context.Context, donorID string) ([]appointments.HistoryEntry, error) {
	if f.historyFn == nil {
		panic("ListHistory not configured")
	}
	return f.historyFn(ctx, donorID)
}

func (f *fakeAppointmentsService) ListOccupiedSlots(ctx context.Context, centerID, date string) ([]domain.TimeOfDay, error) {
	if f.occupiedFn == nil {
		panic("ListOccupiedSlots not configured")
	}
	return f.occupiedFn(ctx, centerID, date)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}

	if got := idempotencyKey(context.Background()); got != "" {
		t.Fatalf("idempotencyKey without metadata = %q, want empty", got)
	}
}

func TestCreateAppointment_PassesIdempotencyKey(t *testing.T) {
	var got appointments.CreateInput
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			got = in
			return domain.Appointment{ID: uuid.New(), DonorID: in.DonorID, CenterID: in.CenterID, Time: "09:00"}, nil
		},
	}, discardLogger())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "k1"))
	resp, err := srv.CreateAppointment(ctx, &CreateAppointmentRequest{DonorID: "d1", CenterID: "c1", Date: "2025-01-02", Time: "09:00"})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if got.IdempotencyKey != "k1" || got.Date != "2025-01-02" || got.Time != "09:00" {
		t.Fatalf("input = %+v", got)
	}
	if resp.Appointment.DonorID != "d1" || resp.Appointment.Time != "09:00" {
		t.Fatalf("appointment = %+v", resp.Appointment)
	}
}

func TestCreateAppointment_RejectsNilRequest(t *testing.T) {
	srv := NewAppointmentsServer(&fakeAppointmentsService{}, discardLogger())

	_, err := srv.CreateAppointment(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateAppointment_MapsErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantReason string
	}{
		{name: "validation", err: &appointments.ValidationError{}, wantCode: codes.InvalidArgument, wantReason: ReasonMalformedInput},
		{name: "not found", err: &appointments.NotFoundError{Entity: "donor", ID: "x"}, wantCode: codes.NotFound, wantReason: ReasonNotFound},
		{name: "past", err: domain.ErrPastInstant, wantCode: codes.FailedPrecondition, wantReason: ReasonPastInstant},
		{name: "too soon", err: &domain.TooSoonError{MinDays: 60}, wantCode: codes.FailedPrecondition, wantReason: ReasonTooSoon},
		{name: "slot taken", err: store.ErrSlotTaken, wantCode: codes.AlreadyExists, wantReason: ReasonSlotTaken},
		{name: "double booked", err: store.ErrDonorDoubleBooked, wantCode: codes.AlreadyExists, wantReason: ReasonDonorDoubleBooked},
		{name: "idempotency", err: store.ErrIdempotencyConflict, wantCode: codes.FailedPrecondition, wantReason: ReasonIdempotencyConflict},
		{name: "unavailable", err: fmt.Errorf("%w: dial tcp", store.ErrUnavailable), wantCode: codes.Unavailable, wantReason: ReasonUnavailable},
		{name: "unknown", err: errors.New("boom"), wantCode: codes.Internal, wantReason: ReasonInternal},
		{name: "deadline", err: fmt.Errorf("find: %w", context.DeadlineExceeded), wantCode: codes.DeadlineExceeded, wantReason: ReasonUnavailable},
		{name: "canceled", err: context.Canceled, wantCode: codes.Canceled, wantReason: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewAppointmentsServer(&fakeAppointmentsService{
				createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
					return domain.Appointment{}, tt.err
				},
			}, discardLogger())

			_, err := srv.CreateAppointment(context.Background(), &CreateAppointmentRequest{DonorID: "d1", CenterID: "c1"})
			if status.Code(err) != tt.wantCode {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.wantCode)
			}
			if got := ReasonFromError(err); got != tt.wantReason {
				t.Fatalf("reason = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

func TestCancelAppointment(t *testing.T) {
	id := uuid.New()
	srv := NewAppointmentsServer(&fakeAppointmentsService{
		cancelFn: func(ctx context.Context, appointmentID uuid.UUID, donorID string) error {
			if appointmentID != id {
				return &appointments.NotFoundError{Entity: "appointment", ID: appointmentID.String()}
			}
			if donorID != "d1" {
				return appointments.ErrPermissionDenied
			}
			return nil
		},
	}, discardLogger())

	if _, err := srv.CancelAppointment(context.Background(), &CancelAppointmentRequest{AppointmentID: "not-a-uuid", DonorID: "d1"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad id: code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	if _, err := srv.CancelAppointment(context.Background(), &CancelAppointmentRequest{AppointmentID: uuid.NewString(), DonorID: "d1"}); status.Code(err) != codes.NotFound {
		t.Fatalf("unknown id: code = %s, want %s", status.Code(err), codes.NotFound)
	}
	_, err := srv.CancelAppointment(context.Background(), &CancelAppointmentRequest{AppointmentID: id.String(), DonorID: "d2"})
	if status.Code(err) != codes.PermissionDenied || ReasonFromError(err) != ReasonPermissionDenied {
		t.Fatalf("other donor: err = %v", err)
	}
	if _, err := srv.CancelAppointment(context.Background(), &CancelAppointmentRequest{AppointmentID: id.String(), DonorID: "d1"}); err != nil {
		t.Fatalf("CancelAppointment error: %v", err)
	}
}

func TestTooSoonCarriesEarliestDate(t *testing.T) {
	last, _ := domain.ParseDate("2025-01-01")
	earliest, _ := domain.ParseDate("2025-03-02")
	st := statusFromError(&domain.TooSoonError{LastDate: last, EarliestDate: earliest, MinDays: 60})

	for _, d := range st.Details() {
		if info, ok := d.(interface{ GetMetadata() map[string]string }); ok {
			if got := info.GetMetadata()["earliest_date"]; got != "2025-03-02" {
				t.Fatalf("earliest_date = %q, want 2025-03-02", got)
			}
			return
		}
	}
	t.Fatalf("no ErrorInfo detail on status %v", st)
}

func TestRequestTimeoutInterceptor_AddsDeadlineOnlyWhenMissing(t *testing.T) {
	interceptor := RequestTimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod("ListAppointments")}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("expected a deadline")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}

	want := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), want)
	defer cancel()
	_, _ = interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		if got, _ := ctx.Deadline(); !got.Equal(want) {
			t.Fatalf("deadline = %v, want %v", got, want)
		}
		return nil, nil
	})
}

func startBufconnServer(t *testing.T) *AppointmentsServiceClient {
	t.Helper()
	ctx := context.Background()

	mem := memory.New()
	if err := mem.SeedDonors(ctx, domain.Donor{ID: "d1"}, domain.Donor{ID: "d2"}); err != nil {
		t.Fatalf("SeedDonors error: %v", err)
	}
	if err := mem.SeedCenters(ctx, domain.Center{ID: "c1", Name: "Hemocentro Central", City: "Recife", State: "PE"}); err != nil {
		t.Fatalf("SeedCenters error: %v", err)
	}
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	svc := appointments.NewService(mem, mem, mem,
		appointments.WithClock(func() time.Time { return now }),
		appointments.WithLogger(discardLogger()),
	)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(ServerOptions(time.Second)...)
	RegisterAppointmentsServiceServer(s, NewAppointmentsServer(svc, discardLogger()))
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewAppointmentsServiceClient(conn)
}

func TestAppointmentsService_OverTheWire(t *testing.T) {
	client := startBufconnServer(t)
	ctx := context.Background()

	created, err := client.CreateAppointment(ctx, &CreateAppointmentRequest{DonorID: "d1", CenterID: "c1", Date: "2025-01-02", Time: "09:30"})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if created.Appointment.Time != "09:30" || created.Appointment.Date != "2025-01-02" {
		t.Fatalf("appointment = %+v", created.Appointment)
	}

	_, err = client.CreateAppointment(ctx, &CreateAppointmentRequest{DonorID: "d2", CenterID: "c1", Date: "2025-01-02", Time: "09:30"})
	if ReasonFromError(err) != ReasonSlotTaken {
		t.Fatalf("second booking: err = %v, want %s", err, ReasonSlotTaken)
	}

	_, err = client.CreateAppointment(ctx, &CreateAppointmentRequest{DonorID: "d2", CenterID: "c1", Date: "2025-01-02", Time: "9:30"})
	if status.Code(err) != codes.InvalidArgument || ReasonFromError(err) != ReasonMalformedInput {
		t.Fatalf("single-digit hour: err = %v, want %s", err, ReasonMalformedInput)
	}

	slots, err := client.ListOccupiedSlots(ctx, &ListOccupiedSlotsRequest{CenterID: "c1", Date: "2025-01-02"})
	if err != nil {
		t.Fatalf("ListOccupiedSlots error: %v", err)
	}
	if len(slots.Times) != 1 || slots.Times[0] != "09:30" {
		t.Fatalf("times = %v", slots.Times)
	}

	history, err := client.ListHistory(ctx, &ListHistoryRequest{DonorID: "d1"})
	if err != nil {
		t.Fatalf("ListHistory error: %v", err)
	}
	if len(history.Entries) != 1 || history.Entries[0].Center.City != "Recife" || history.Entries[0].Completed {
		t.Fatalf("history = %+v", history.Entries)
	}

	_, err = client.CancelAppointment(ctx, &CancelAppointmentRequest{AppointmentID: created.Appointment.ID, DonorID: "d2"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("cancel by other donor: code = %s", status.Code(err))
	}
	if _, err := client.CancelAppointment(ctx, &CancelAppointmentRequest{AppointmentID: created.Appointment.ID, DonorID: "d1"}); err != nil {
		t.Fatalf("CancelAppointment error: %v", err)
	}

	list, err := client.ListAppointments(ctx, &ListAppointmentsRequest{DonorID: "d1"})
	if err != nil {
		t.Fatalf("ListAppointments error: %v", err)
	}
	if len(list.Appointments) != 0 {
		t.Fatalf("appointments after cancel = %d, want 0", len(list.Appointments))
	}
}

func TestAppointmentsService_IdempotentReplayOverTheWire(t *testing.T) {
	client := startBufconnServer(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "idempotency-key", "retry-1")

	req := &CreateAppointmentRequest{DonorID: "d1", CenterID: "c1", Date: "2025-01-02", Time: "10:00"}
	first, err := client.CreateAppointment(ctx, req)
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	second, err := client.CreateAppointment(ctx, req)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if first.Appointment.ID != second.Appointment.ID {
		t.Fatalf("replay id = %s, want %s", second.Appointment.ID, first.Appointment.ID)
	}

	req.Time = "11:00"
	if _, err := client.CreateAppointment(ctx, req); ReasonFromError(err) != ReasonIdempotencyConflict {
		t.Fatalf("changed payload: err = %v, want %s", err, ReasonIdempotencyConflict)
	}
}
