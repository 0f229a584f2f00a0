package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// BookingCheck is a proposed (doctor, date, time). ExcludeID names the
// appointment being moved so it does not conflict with itself.
type BookingCheck struct {
	DoctorID  uuid.UUID
	Date      time.Time
	Time      TimeOfDay
	ExcludeID uuid.UUID
}

// ValidateBooking decides whether a slot can be booked. Checks run in order
// and stop at the first failure: past date, availability, double booking.
// A weekday with no windows gets the default window as a side effect.
func (s *Service) ValidateBooking(ctx context.Context, c BookingCheck) error {
	d, err := s.doctor(ctx, c.DoctorID)
	if err != nil {
		return err
	}
	return s.validate(ctx, d, c)
}

func (s *Service) validate(ctx context.Context, d *identity.Doctor, c BookingCheck) error {
	if !c.Time.Valid() {
		return invalid(ErrInvalidInput, "time must be within the day")
	}
	date := DateOf(c.Date)

	if c.Time.On(date, d.Location).Before(s.now()) {
		return invalid(ErrPastDate, "Cannot schedule appointments in the past")
	}

	day := WeekdayOf(date)
	windows, err := s.Windows(ctx, d.ID, day)
	if err != nil {
		return err
	}
	if !covered(windows, c.Time) && !day.Weekend() {
		if _, err := s.ensureDefault(ctx, d.ID, day); err != nil {
			return err
		}
		if windows, err = s.Windows(ctx, d.ID, day); err != nil {
			return err
		}
	}
	if !covered(windows, c.Time) {
		if len(windows) == 0 {
			if day.Weekend() {
				return invalid(ErrWeekendUnavailable, "Doctor not available on weekends")
			}
			return invalid(ErrDoctorUnavailable, "Doctor not available on %s", day)
		}
		return invalid(ErrDoctorUnavailable, "Doctor not available at %s on %s. Available hours: %s",
			c.Time, day, hours(windows))
	}

	taken, err := s.repo.HasActiveAppointment(ctx, d.ID, date, c.Time, c.ExcludeID)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return s.slotTaken(ctx, d, date)
	}
	return nil
}

// slotTaken builds the conflict error with open alternatives for the day.
func (s *Service) slotTaken(ctx context.Context, d *identity.Doctor, date time.Time) error {
	var alternatives []TimeOfDay
	if s.cfg.SuggestionLimit > 0 {
		open, err := s.openTimes(ctx, d.ID, date, d.Location, SlotOptions{
			Limit:     s.cfg.SuggestionLimit,
			NotBefore: s.now(),
		})
		if err != nil {
			return fmt.Errorf("suggest alternatives: %w", err)
		}
		alternatives = open
	}

	msg := "This time slot is already booked. "
	if len(alternatives) == 0 {
		msg += "No available slots on " + date.Format(time.DateOnly)
	} else {
		names := make([]string, len(alternatives))
		for i, t := range alternatives {
			names[i] = t.String()
		}
		msg += "Available times: " + strings.Join(names, ", ")
	}

	return &ValidationError{Err: ErrSlotTaken, Message: msg, Alternatives: alternatives}
}

func covered(windows []AvailabilityWindow, t TimeOfDay) bool {
	for _, w := range windows {
		if w.Covers(t) {
			return true
		}
	}
	return false
}

func hours(windows []AvailabilityWindow) string {
	parts := make([]string, len(windows))
	for i, w := range windows {
		parts[i] = w.StartTime.String() + "-" + w.EndTime.String()
	}
	return strings.Join(parts, ", ")
}
