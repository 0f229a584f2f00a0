package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func TestAvailableSlots_FullDay(t *testing.T) {
	f := newFixture(t)
	f.addWindow(t, f.doctor, Monday, At(9, 0), At(17, 0))

	times, err := f.svc.AvailableSlots(context.Background(), f.doctor, monday, SlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 16 {
		t.Fatalf("expected 16 slots, got %d: %v", len(times), times)
	}
	if times[0] != At(9, 0) || times[15] != At(16, 30) {
		t.Errorf("expected 09:00..16:30, got %s..%s", times[0], times[15])
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("slots out of order at %d: %v", i, times)
		}
	}
}

func TestAvailableSlots_ExcludesActiveBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addWindow(t, f.doctor, Monday, At(9, 0), At(17, 0))

	f.book(t, f.mother, monday, At(10, 0))
	f.book(t, f.mother2, monday, At(13, 30))
	cancelled := f.book(t, f.mother, monday, At(15, 0))
	if _, err := f.svc.TransitionAppointment(ctx, f.as(f.mother), cancelled.ID, StatusCancelled, nil); err != nil {
		t.Fatal(err)
	}

	times, err := f.svc.AvailableSlots(ctx, f.doctor, monday, SlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 14 {
		t.Fatalf("expected 14 open slots, got %d", len(times))
	}
	for _, tm := range times {
		if tm == At(10, 0) || tm == At(13, 30) {
			t.Errorf("booked slot %s listed as open", tm)
		}
	}

	slots, err := f.svc.Slots(ctx, f.doctor, monday, SlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots in total, got %d", len(slots))
	}
	for _, s := range slots {
		booked := s.Time == At(10, 0) || s.Time == At(13, 30)
		if s.IsAvailable == booked {
			t.Errorf("slot %s: IsAvailable = %v", s.Time, s.IsAvailable)
		}
	}
}

func TestAvailableSlots_OverlappingWindows(t *testing.T) {
	f := newFixture(t)
	f.addWindow(t, f.doctor, Tuesday, At(9, 0), At(12, 0))
	f.addWindow(t, f.doctor, Tuesday, At(11, 0), At(13, 0))

	times, err := f.svc.AvailableSlots(context.Background(), f.doctor, monday.AddDate(0, 0, 1), SlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 8 || times[0] != At(9, 0) || times[7] != At(12, 30) {
		t.Fatalf("expected 8 unique slots 09:00..12:30, got %v", times)
	}
}

func TestAvailableSlots_GranularityAndLimit(t *testing.T) {
	f := newFixture(t)
	f.addWindow(t, f.doctor, Monday, At(9, 0), At(10, 0))
	ctx := context.Background()

	times, err := f.svc.AvailableSlots(ctx, f.doctor, monday, SlotOptions{Granularity: 15 * time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 4 {
		t.Fatalf("expected 4 quarter-hour slots, got %v", times)
	}

	times, err = f.svc.AvailableSlots(ctx, f.doctor, monday, SlotOptions{Granularity: 15 * time.Minute, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 2 {
		t.Fatalf("expected limit of 2, got %v", times)
	}

	_, err = f.svc.AvailableSlots(ctx, f.doctor, monday, SlotOptions{Granularity: 90 * time.Second})
	validationErr(t, err, ErrInvalidInput)
}

func TestAvailableSlots_ProvisionsWeekday(t *testing.T) {
	f := newFixture(t)

	times, err := f.svc.AvailableSlots(context.Background(), f.doctor, monday, SlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 16 {
		t.Fatalf("expected the default window's 16 slots, got %d", len(times))
	}
	if got := f.eventCount(EventAvailabilityProvisioned); got != 1 {
		t.Errorf("expected one provisioning event, got %d", got)
	}
}

func TestListOpenSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	listing, err := f.svc.ListOpenSlots(ctx, f.doctor, monday)
	if err != nil {
		t.Fatal(err)
	}
	if listing.DoctorName != "Dr. Grace Hopper" {
		t.Errorf("unexpected doctor name %q", listing.DoctorName)
	}
	if len(listing.Times) != 16 || listing.Message != "" {
		t.Errorf("unexpected listing: %+v", listing)
	}

	listing, err = f.svc.ListOpenSlots(ctx, f.doctor, saturday)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Times) != 0 || listing.Message != "Doctor not available on weekends" {
		t.Errorf("unexpected weekend listing: %+v", listing)
	}

	if _, err := f.svc.ListOpenSlots(ctx, uuid.New(), monday); !errors.Is(err, identity.ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
	if _, err := f.svc.ListOpenSlots(ctx, f.mother, monday); !errors.Is(err, identity.ErrDoctorNotFound) {
		t.Fatalf("a mother is not a doctor: got %v", err)
	}
}

func TestListOpenSlots_WeekendDayOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false

	if _, err := f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Saturday, StartTime: At(9, 0), EndTime: At(12, 0), IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	listing, err := f.svc.ListOpenSlots(ctx, f.doctor, saturday)
	if err != nil {
		t.Fatal(err)
	}
	if listing.Message != "Doctor not available on weekends" {
		t.Errorf("unexpected message %q", listing.Message)
	}

	err = f.svc.ValidateBooking(ctx, BookingCheck{DoctorID: f.doctor, Date: saturday, Time: At(9, 0)})
	ve := validationErr(t, err, ErrWeekendUnavailable)
	if ve.Message != listing.Message {
		t.Errorf("listing and validator disagree: %q vs %q", listing.Message, ve.Message)
	}
}

func TestListOpenSlots_WeekendFullyBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addWindow(t, f.doctor, Saturday, At(9, 0), At(10, 0))
	f.book(t, f.mother, saturday, At(9, 0))
	f.book(t, f.mother2, saturday, At(9, 30))

	listing, err := f.svc.ListOpenSlots(ctx, f.doctor, saturday)
	if err != nil {
		t.Fatal(err)
	}
	if listing.Message != "No available slots on 2024-06-15" {
		t.Errorf("unexpected message %q", listing.Message)
	}
}
