package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// WindowInput is a doctor's request to add or change a weekly window.
type WindowInput struct {
	DayOfWeek Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
	IsActive  *bool // nil means active
}

func (in WindowInput) validate() error {
	if !in.DayOfWeek.Valid() {
		return invalid(ErrInvalidInput, "day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	if !in.StartTime.Valid() || !in.EndTime.Valid() {
		return invalid(ErrInvalidInput, "times must be within the day")
	}
	if in.StartTime >= in.EndTime {
		return invalid(ErrInvalidWindow, "end time must be after start time")
	}
	return nil
}

func (in WindowInput) active() bool {
	return in.IsActive == nil || *in.IsActive
}

// Windows returns the active windows of a doctor on a weekday, ordered by start.
func (s *Service) Windows(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]AvailabilityWindow, error) {
	ws, err := s.repo.ActiveWindows(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	return ws, nil
}

// ListDoctorWindows returns every window of an active doctor, inactive ones included.
func (s *Service) ListDoctorWindows(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error) {
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	ws, err := s.repo.ListWindows(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return ws, nil
}

func (s *Service) CreateWindow(ctx context.Context, actor identity.Actor, in WindowInput) (*AvailabilityWindow, error) {
	if !actor.IsDoctor() {
		return nil, forbidden("manage availability")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.CreateWindow(ctx, AvailabilityWindow{
		DoctorID:  actor.UserID,
		DayOfWeek: in.DayOfWeek,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		IsActive:  in.active(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateWindow) {
			return nil, invalid(ErrDuplicateWindow, "a window already starts at %s on %s", in.StartTime, in.DayOfWeek)
		}
		return nil, fmt.Errorf("create window: %w", err)
	}

	s.log.Info().Str("doctor_id", actor.UserID.String()).Str("day", w.DayOfWeek.String()).
		Str("start", w.StartTime.String()).Str("end", w.EndTime.String()).Msg("availability window created")
	return w, nil
}

func (s *Service) UpdateWindow(ctx context.Context, actor identity.Actor, id uuid.UUID, in WindowInput) (*AvailabilityWindow, error) {
	current, err := s.ownedWindow(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	current.DayOfWeek = in.DayOfWeek
	current.StartTime = in.StartTime
	current.EndTime = in.EndTime
	current.IsActive = in.active()

	w, err := s.repo.UpdateWindow(ctx, *current)
	if err != nil {
		if errors.Is(err, ErrDuplicateWindow) {
			return nil, invalid(ErrDuplicateWindow, "a window already starts at %s on %s", in.StartTime, in.DayOfWeek)
		}
		if errors.Is(err, ErrWindowNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update window: %w", err)
	}
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if _, err := s.ownedWindow(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteWindow(ctx, id); err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return err
		}
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}

// ownedWindow loads a window the actor is allowed to change.
func (s *Service) ownedWindow(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AvailabilityWindow, error) {
	if !actor.IsDoctor() {
		return nil, forbidden("manage availability")
	}
	w, err := s.repo.GetWindow(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load window: %w", err)
	}
	if !actor.Is(w.DoctorID) {
		return nil, forbidden("change another doctor's availability")
	}
	return w, nil
}
