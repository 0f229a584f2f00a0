package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	maxDuration      = 8 * 60
)

type BookingInput struct {
	DoctorID        uuid.UUID
	PatientID       *uuid.UUID // admins book on behalf of a patient
	Date            time.Time
	Time            TimeOfDay
	Type            AppointmentType
	Reason          string
	Notes           string
	DurationMinutes int
}

// RescheduleInput moves an appointment. A nil DoctorID keeps the current doctor.
type RescheduleInput struct {
	DoctorID *uuid.UUID
	Date     time.Time
	Time     TimeOfDay
}

type ListFilter struct {
	Status *Status
	Search string
	Limit  int
	Offset int
}

// BookAppointment validates and records a new appointment, then tells the doctor.
func (s *Service) BookAppointment(ctx context.Context, actor identity.Actor, in BookingInput) (*Appointment, error) {
	patientID, err := s.bookingPatient(ctx, actor, in.PatientID)
	if err != nil {
		return nil, err
	}

	if in.Type == "" {
		in.Type = TypeConsultation
	}
	if !in.Type.Valid() {
		return nil, invalid(ErrInvalidInput, "unknown appointment type %q", in.Type)
	}
	if strings.TrimSpace(in.Reason) == "" {
		in.Reason = DefaultReason
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	if in.DurationMinutes < 0 || in.DurationMinutes > maxDuration {
		return nil, invalid(ErrInvalidInput, "duration_minutes must be between 1 and %d", maxDuration)
	}

	d, err := s.doctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	date := DateOf(in.Date)

	if err := s.validate(ctx, d, BookingCheck{DoctorID: d.ID, Date: date, Time: in.Time}); err != nil {
		return nil, err
	}

	appt, err := s.repo.InsertAppointment(ctx, Appointment{
		PatientID:       patientID,
		DoctorID:        d.ID,
		Date:            date,
		Time:            in.Time,
		Type:            in.Type,
		Status:          StatusScheduled,
		Reason:          strings.TrimSpace(in.Reason),
		Notes:           in.Notes,
		DurationMinutes: in.DurationMinutes,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			s.log.Info().Str("doctor_id", d.ID.String()).Str("date", date.Format(time.DateOnly)).
				Str("time", in.Time.String()).Msg("booking lost slot race")
			return nil, s.slotTaken(ctx, d, date)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	s.logEvent(ctx, &appt.ID, EventAppointmentBooked, map[string]any{
		"doctor_id":  appt.DoctorID.String(),
		"patient_id": appt.PatientID.String(),
		"date":       appt.Date.Format(time.DateOnly),
		"time":       appt.Time.String(),
	})
	s.notify(ctx, appt.DoctorID, "New Appointment Booked",
		fmt.Sprintf("%s booked an appointment for %s.", s.userName(ctx, patientID), when(appt)))

	return appt, nil
}

// bookingPatient decides whose appointment is being booked.
func (s *Service) bookingPatient(ctx context.Context, actor identity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case actor.IsMother():
		if requested != nil && *requested != actor.UserID {
			return uuid.Nil, forbidden("book for another patient")
		}
		return actor.UserID, nil
	case actor.IsAdmin():
		if requested == nil {
			return uuid.Nil, invalid(ErrInvalidInput, "patient_id is required")
		}
		u, err := s.dir.User(ctx, *requested)
		if err != nil {
			return uuid.Nil, err
		}
		if u.Role != identity.RoleMother {
			return uuid.Nil, invalid(ErrInvalidInput, "patient_id must belong to a patient")
		}
		return u.ID, nil
	default:
		return uuid.Nil, forbidden("book appointments")
	}
}

// RescheduleAppointment moves a patient's own future appointment to a new slot.
func (s *Service) RescheduleAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID, in RescheduleInput) (*Appointment, error) {
	appt, err := s.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsMother() || !actor.Is(appt.PatientID) {
		return nil, forbidden("reschedule this appointment")
	}
	if appt.IsPast(s.now(), s.locationOf(ctx, appt.DoctorID)) || !appt.Status.Active() {
		return nil, invalid(ErrNotEditable, "Cannot edit past or completed appointments")
	}

	doctorID := appt.DoctorID
	if in.DoctorID != nil {
		doctorID = *in.DoctorID
	}
	d, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	date := DateOf(in.Date)

	if err := s.validate(ctx, d, BookingCheck{DoctorID: d.ID, Date: date, Time: in.Time, ExcludeID: appt.ID}); err != nil {
		return nil, err
	}

	moved, err := s.repo.MoveAppointment(ctx, appt.ID, d.ID, date, in.Time)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSlot):
			return nil, s.slotTaken(ctx, d, date)
		case errors.Is(err, ErrStaleAppointment):
			return nil, err
		}
		return nil, fmt.Errorf("move appointment: %w", err)
	}

	s.logEvent(ctx, &moved.ID, EventAppointmentRescheduled, map[string]any{
		"from_doctor_id": appt.DoctorID.String(),
		"from_date":      appt.Date.Format(time.DateOnly),
		"from_time":      appt.Time.String(),
		"doctor_id":      moved.DoctorID.String(),
		"date":           moved.Date.Format(time.DateOnly),
		"time":           moved.Time.String(),
	})
	s.notify(ctx, moved.DoctorID, "Appointment Rescheduled",
		fmt.Sprintf("%s moved their appointment to %s.", s.userName(ctx, moved.PatientID), when(moved)))

	return moved, nil
}

// TransitionAppointment applies a status change allowed for the actor and
// notifies the other party.
func (s *Service) TransitionAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID, to Status, notes *string) (*Appointment, error) {
	appt, err := s.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := ParseStatus(string(to)); !ok {
		return nil, invalid(ErrInvalidInput, "unknown status %q", to)
	}

	switch {
	case actor.IsAdmin():
		if appt.Status == to {
			return nil, invalid(ErrInvalidStatusTransition, "appointment is already %s", to)
		}
	case actor.IsDoctor():
		if !actor.Is(appt.DoctorID) {
			return nil, forbidden("change another doctor's appointment")
		}
		if !appt.Status.CanTransitionTo(to) {
			return nil, invalid(ErrInvalidStatusTransition, "cannot move appointment from %s to %s", appt.Status, to)
		}
	case actor.IsMother():
		if !actor.Is(appt.PatientID) {
			return nil, forbidden("change another patient's appointment")
		}
		if to != StatusCancelled {
			return nil, forbidden("change appointment status")
		}
		if !appt.CanBeCancelled(s.now(), s.locationOf(ctx, appt.DoctorID)) {
			return nil, invalid(ErrNotCancellable, "This appointment cannot be cancelled")
		}
	default:
		return nil, forbidden("change appointment status")
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to, notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSlot):
			d, derr := s.doctor(ctx, appt.DoctorID)
			if derr != nil {
				return nil, derr
			}
			return nil, s.slotTaken(ctx, d, appt.Date)
		case errors.Is(err, ErrStaleAppointment):
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, &updated.ID, EventAppointmentTransitioned, map[string]any{
		"from":     string(appt.Status),
		"to":       string(to),
		"actor_id": actor.UserID.String(),
		"role":     string(actor.Role),
	})

	if actor.IsMother() {
		s.notify(ctx, updated.DoctorID, "Appointment Cancelled",
			fmt.Sprintf("%s cancelled their appointment for %s.", s.userName(ctx, updated.PatientID), when(updated)))
	} else {
		title := "Appointment " + to.Label()
		if actor.IsDoctor() && to == StatusCancelled {
			title = "Appointment Declined"
		}
		s.notify(ctx, updated.PatientID, title,
			fmt.Sprintf("Your appointment for %s is now %s.", when(updated), strings.ToLower(to.Label())))
	}

	return updated, nil
}

// GetAppointment returns an appointment visible to the actor.
func (s *Service) GetAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
	case actor.IsMother() && actor.Is(appt.PatientID):
	case actor.IsDoctor() && actor.Is(appt.DoctorID):
	default:
		return nil, forbidden("view this appointment")
	}
	return appt, nil
}

// ListAppointments lists the actor's appointments, newest first. Admins see all.
func (s *Service) ListAppointments(ctx context.Context, actor identity.Actor, f ListFilter) ([]Appointment, error) {
	q := AppointmentQuery{Status: f.Status, Search: f.Search, Limit: f.Limit, Offset: f.Offset}
	switch {
	case actor.IsMother():
		q.PatientID = &actor.UserID
	case actor.IsDoctor():
		q.DoctorID = &actor.UserID
	case actor.IsAdmin():
	default:
		return nil, forbidden("list appointments")
	}

	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	appts, err := s.repo.ListAppointments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) loadAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// locationOf is the doctor's time zone, or the clinic's when the doctor
// cannot be resolved any more.
func (s *Service) locationOf(ctx context.Context, doctorID uuid.UUID) *time.Location {
	if d, err := s.doctor(ctx, doctorID); err == nil {
		return d.Location
	}
	return s.cfg.Location
}

func when(a *Appointment) string {
	return a.Date.Format("Monday, January 2, 2006") + " at " + a.Time.Display()
}
