package domain

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRecoveryDays is the minimum gap between two donations.
const DefaultRecoveryDays = 60

var (
	ErrPastInstant = errors.New("slot is not in the future")
	ErrTooSoon     = errors.New("recovery interval not elapsed")
)

// TooSoonError carries the dates behind a recovery interval rejection so a
// caller can tell the donor when they may book again.
type TooSoonError struct {
	LastDate     time.Time
	EarliestDate time.Time
	MinDays      int
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("a new donation can only be booked %d days after the last one (earliest %s)",
		e.MinDays, FormatDate(e.EarliestDate))
}

func (e *TooSoonError) Is(target error) bool {
	return target == ErrTooSoon
}

// ValidateFuture fails unless the slot starts strictly after now.
func ValidateFuture(date time.Time, tod TimeOfDay, now time.Time, loc *time.Location) error {
	if !SlotStart(date, tod, loc).After(now) {
		return ErrPastInstant
	}
	return nil
}

// LatestDate returns the most recent appointment date, if any.
func LatestDate(appts []Appointment) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, a := range appts {
		if !found || a.Date.After(latest) {
			latest = a.Date
			found = true
		}
	}
	return latest, found
}

// ValidateInterval rejects a candidate date earlier than minDays after the
// donor's most recent appointment. Exactly minDays later is accepted.
func ValidateInterval(candidate time.Time, donorAppts []Appointment, minDays int) error {
	last, ok := LatestDate(donorAppts)
	if !ok {
		return nil
	}
	earliest := DateOf(last).AddDate(0, 0, minDays)
	if DateOf(candidate).Before(earliest) {
		return &TooSoonError{LastDate: DateOf(last), EarliestDate: earliest, MinDays: minDays}
	}
	return nil
}
