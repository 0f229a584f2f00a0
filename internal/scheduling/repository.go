package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentQuery filters ListAppointments. Nil fields do not filter.
type AppointmentQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	Search    string
	Limit     int
	Offset    int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Availability store
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error)
	ActiveWindows(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]AvailabilityWindow, error)
	CountWindows(ctx context.Context, doctorID uuid.UUID, day Weekday) (int, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	// CreateWindowIfAbsent inserts w unless (doctor, day, start) exists and
	// returns the stored row either way.
	CreateWindowIfAbsent(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, bool, error)
	UpdateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error

	// Booking ledger
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error)
	// HasActiveAppointment ignores the appointment with id exclude.
	HasActiveAppointment(ctx context.Context, doctorID uuid.UUID, date time.Time, t TimeOfDay, exclude uuid.UUID) (bool, error)
	ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOfDay, error)
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// MoveAppointment changes doctor, date and time of an active appointment.
	MoveAppointment(ctx context.Context, id, doctorID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error)
	// UpdateAppointmentStatus only applies while the stored status is still from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, notes *string) (*Appointment, error)

	// Reminders
	ActiveBetween(ctx context.Context, fromDate, toDate time.Time) ([]Appointment, error)
	RecordReminder(ctx context.Context, appointmentID uuid.UUID, reminderType string, hoursBefore int) (bool, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
