package appointments

import (
	"errors"
	"fmt"

	"donorslot/internal/store"
)

// ErrPermissionDenied is returned when a donor tries to cancel an
// appointment they do not own.
var ErrPermissionDenied = errors.New("appointment belongs to another donor")

// ValidationError reports malformed caller input.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// NotFoundError names the donor, center or appointment that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return store.ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
