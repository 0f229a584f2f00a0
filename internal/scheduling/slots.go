package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type SlotOptions struct {
	// Granularity between slot starts; zero means the configured default.
	Granularity time.Duration
	// Limit caps the number of open slots returned by AvailableSlots.
	Limit int
	// NotBefore drops slots starting before this instant.
	NotBefore time.Time
}

// SlotListing is the open-slot view of one doctor's day.
type SlotListing struct {
	DoctorName string
	Date       time.Time
	Times      []TimeOfDay
	Message    string
}

// Slots returns every slot of a doctor's day with its availability.
func (s *Service) Slots(ctx context.Context, doctorID uuid.UUID, date time.Time, opts SlotOptions) ([]Slot, error) {
	if _, err := s.doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.slots(ctx, doctorID, DateOf(date), opts)
}

// AvailableSlots returns the open times of a doctor's day in order.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, opts SlotOptions) ([]TimeOfDay, error) {
	d, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.openTimes(ctx, doctorID, DateOf(date), d.Location, opts)
}

// ListOpenSlots backs the availability check: the doctor's display name and
// the open times for the date.
func (s *Service) ListOpenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (*SlotListing, error) {
	d, err := s.doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	date = DateOf(date)

	times, err := s.openTimes(ctx, doctorID, date, d.Location, SlotOptions{})
	if err != nil {
		return nil, err
	}

	listing := &SlotListing{DoctorName: d.DisplayName(), Date: date, Times: times}
	if len(times) == 0 {
		day := WeekdayOf(date)
		active, err := s.Windows(ctx, doctorID, day)
		if err != nil {
			return nil, err
		}
		if day.Weekend() && len(active) == 0 {
			listing.Message = "Doctor not available on weekends"
		} else {
			listing.Message = "No available slots on " + date.Format(time.DateOnly)
		}
	}
	return listing, nil
}

// openTimes filters slots to open ones; loc places NotBefore on the doctor's clock.
func (s *Service) openTimes(ctx context.Context, doctorID uuid.UUID, date time.Time, loc *time.Location, opts SlotOptions) ([]TimeOfDay, error) {
	slots, err := s.slots(ctx, doctorID, date, opts)
	if err != nil {
		return nil, err
	}

	var open []TimeOfDay
	for _, sl := range slots {
		if !sl.IsAvailable {
			continue
		}
		if !opts.NotBefore.IsZero() && sl.Time.On(date, loc).Before(opts.NotBefore) {
			continue
		}
		open = append(open, sl.Time)
		if opts.Limit > 0 && len(open) == opts.Limit {
			break
		}
	}
	return open, nil
}

// slots enumerates the day's windows, provisioning the weekday default when
// the day has none.
func (s *Service) slots(ctx context.Context, doctorID uuid.UUID, date time.Time, opts SlotOptions) ([]Slot, error) {
	step := opts.Granularity
	if step <= 0 {
		step = s.cfg.SlotGranularity
	}
	if step < time.Minute || step%time.Minute != 0 {
		return nil, invalid(ErrInvalidInput, "granularity must be a positive whole number of minutes")
	}

	day := WeekdayOf(date)
	windows, err := s.Windows(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		w, err := s.ensureDefault(ctx, doctorID, day)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, nil
		}
		windows = []AvailabilityWindow{*w}
	}

	booked, err := s.repo.ActiveTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	taken := make(map[TimeOfDay]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}

	seen := make(map[TimeOfDay]bool)
	var out []Slot
	for _, w := range windows {
		for t := w.StartTime; t < w.EndTime; t = t.Add(step) {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, Slot{Time: t, IsAvailable: !taken[t]})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
