package scheduling

import (
	"errors"
	"fmt"
)

// Lookup and storage errors.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrWindowNotFound      = errors.New("availability window not found")
	ErrStaleAppointment    = errors.New("appointment was changed by another request")

	// ErrDuplicateSlot is the ledger's unique index firing. The service turns
	// it into a slot-taken ValidationError before returning.
	ErrDuplicateSlot = errors.New("an active appointment already holds this slot")
)

// Rule violations, always wrapped in a *ValidationError.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrPastDate                = errors.New("cannot schedule appointments in the past")
	ErrDoctorUnavailable       = errors.New("doctor not available at this time")
	ErrWeekendUnavailable      = errors.New("doctor not available on weekends")
	ErrSlotTaken               = errors.New("slot already booked")
	ErrInvalidWindow           = errors.New("end time must be after start time")
	ErrDuplicateWindow         = errors.New("a window already starts at this time on this day")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNotCancellable          = errors.New("appointment cannot be cancelled")
	ErrNotEditable             = errors.New("cannot edit past or completed appointments")
)

var ErrForbidden = errors.New("not authorized")

// ValidationError is a user-facing rule violation. Alternatives is filled for
// slot conflicts.
type ValidationError struct {
	Err          error
	Message      string
	Alternatives []TimeOfDay
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(rule error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: rule, Message: fmt.Sprintf(format, args...)}
}

// PermissionError reports a caller acting outside their role or ownership.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string { return "not authorized to " + e.Action }
func (e *PermissionError) Unwrap() error { return ErrForbidden }

func forbidden(action string) error {
	return &PermissionError{Action: action}
}
