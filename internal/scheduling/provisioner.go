package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Default hours given to a doctor who has never set up a weekday.
var (
	DefaultWindowStart = At(9, 0)
	DefaultWindowEnd   = At(17, 0)
)

// EnsureDefault makes sure a doctor has availability on a weekday. Weekends
// get nothing and return nil. When windows exist for the day the first active
// one is returned, or nil when all are inactive, so a doctor who switched a
// day off is never switched back on. Fails with identity.ErrDoctorNotFound
// unless the id is an active doctor. Safe to call concurrently.
func (s *Service) EnsureDefault(ctx context.Context, doctorID uuid.UUID, day Weekday) (*AvailabilityWindow, error) {
	if !day.Valid() {
		return nil, invalid(ErrInvalidInput, "day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.ensureDefault(ctx, doctorID, day)
}

// ensureDefault is EnsureDefault for a doctor the caller has already resolved.
func (s *Service) ensureDefault(ctx context.Context, doctorID uuid.UUID, day Weekday) (*AvailabilityWindow, error) {
	if day.Weekend() {
		return nil, nil
	}

	n, err := s.repo.CountWindows(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("count windows: %w", err)
	}
	if n > 0 {
		active, err := s.repo.ActiveWindows(ctx, doctorID, day)
		if err != nil {
			return nil, fmt.Errorf("load windows: %w", err)
		}
		if len(active) == 0 {
			return nil, nil
		}
		return &active[0], nil
	}

	w, created, err := s.repo.CreateWindowIfAbsent(ctx, AvailabilityWindow{
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: DefaultWindowStart,
		EndTime:   DefaultWindowEnd,
		IsActive:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("provision default window: %w", err)
	}

	if created {
		s.log.Info().Str("doctor_id", doctorID.String()).Str("day", day.String()).Msg("default availability provisioned")
		s.logEvent(ctx, nil, EventAvailabilityProvisioned, map[string]any{
			"doctor_id":   doctorID.String(),
			"day_of_week": int(day),
			"start_time":  w.StartTime.String(),
			"end_time":    w.EndTime.String(),
		})
	}
	if !w.IsActive {
		return nil, nil
	}
	return w, nil
}
