package grpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"donorslot/internal/domain"
	"donorslot/internal/service/appointments"
	"donorslot/internal/store"
)

// ErrorDomain tags the ErrorInfo detail attached to every rejected call.
const ErrorDomain = "donorslot"

// Reasons carried in ErrorInfo.Reason. Clients branch on these, not on
// message text.
const (
	ReasonMalformedInput      = "MALFORMED_INPUT"
	ReasonNotFound            = "NOT_FOUND"
	ReasonPastInstant         = "PAST_INSTANT"
	ReasonTooSoon             = "TOO_SOON"
	ReasonSlotTaken           = "SLOT_TAKEN"
	ReasonDonorDoubleBooked   = "DONOR_DOUBLE_BOOKED"
	ReasonIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ReasonPermissionDenied    = "PERMISSION_DENIED"
	ReasonUnavailable         = "STORE_UNAVAILABLE"
	ReasonInternal            = "INTERNAL"
)

func statusFromError(err error) *status.Status {
	var (
		vErr  *appointments.ValidationError
		nfErr *appointments.NotFoundError
		tsErr *domain.TooSoonError
	)
	switch {
	case errors.As(err, &vErr):
		return newStatus(codes.InvalidArgument, ReasonMalformedInput, vErr.Error(), nil)
	case errors.As(err, &nfErr):
		return newStatus(codes.NotFound, ReasonNotFound, nfErr.Error(), map[string]string{
			"entity": nfErr.Entity,
			"id":     nfErr.ID,
		})
	case errors.Is(err, store.ErrNotFound):
		return newStatus(codes.NotFound, ReasonNotFound, "not found", nil)
	case errors.Is(err, domain.ErrPastInstant):
		return newStatus(codes.FailedPrecondition, ReasonPastInstant, "The chosen date and time have already passed.", nil)
	case errors.As(err, &tsErr):
		return newStatus(codes.FailedPrecondition, ReasonTooSoon, tsErr.Error(), map[string]string{
			"last_date":     domain.FormatDate(tsErr.LastDate),
			"earliest_date": domain.FormatDate(tsErr.EarliestDate),
		})
	case errors.Is(err, store.ErrSlotTaken):
		return newStatus(codes.AlreadyExists, ReasonSlotTaken, "That time is already booked at this center. Pick a different slot.", nil)
	case errors.Is(err, store.ErrDonorDoubleBooked):
		return newStatus(codes.AlreadyExists, ReasonDonorDoubleBooked, "You already have an appointment at that time.", nil)
	case errors.Is(err, store.ErrIdempotencyConflict):
		return newStatus(codes.FailedPrecondition, ReasonIdempotencyConflict, "This request key was already used for a different appointment.", nil)
	case errors.Is(err, appointments.ErrPermissionDenied):
		return newStatus(codes.PermissionDenied, ReasonPermissionDenied, "You can only cancel your own appointments.", nil)
	case errors.Is(err, store.ErrUnavailable):
		return newStatus(codes.Unavailable, ReasonUnavailable, "storage temporarily unavailable, retry later", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newStatus(codes.DeadlineExceeded, ReasonUnavailable, "request timed out", nil)
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request canceled")
	default:
		return newStatus(codes.Internal, ReasonInternal, "internal error", nil)
	}
}

func newStatus(code codes.Code, reason, msg string, md map[string]string) *status.Status {
	st := status.New(code, msg)
	withInfo, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: md,
	})
	if err != nil {
		return st
	}
	return withInfo
}

// ReasonFromError extracts the ErrorInfo reason from a status error, or ""
// when there is none.
func ReasonFromError(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	return reasonOf(st)
}

func reasonOf(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
