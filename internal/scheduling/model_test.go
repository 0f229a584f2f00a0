package scheduling

import (
	"testing"
	"time"
)

func TestWeekdayOf(t *testing.T) {
	cases := map[string]Weekday{
		"2024-06-10": Monday,
		"2024-06-14": Friday,
		"2024-06-15": Saturday,
		"2024-06-16": Sunday,
	}
	for in, want := range cases {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if got := WeekdayOf(d); got != want {
			t.Errorf("WeekdayOf(%s) = %s, want %s", in, got, want)
		}
	}
	if !Saturday.Weekend() || !Sunday.Weekend() || Friday.Weekend() {
		t.Error("weekend classification is wrong")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	if err != nil || got != At(9, 30) {
		t.Fatalf("ParseTimeOfDay(09:30) = %v, %v", got, err)
	}
	got, err = ParseTimeOfDay("17:00:00")
	if err != nil || got != At(17, 0) {
		t.Fatalf("ParseTimeOfDay(17:00:00) = %v, %v", got, err)
	}
	for _, bad := range []string{"", "9am", "25:00", "10:00:30"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTimeOfDayFormatting(t *testing.T) {
	cases := []struct {
		t       TimeOfDay
		str     string
		display string
	}{
		{At(9, 0), "09:00", "9:00 AM"},
		{At(13, 30), "13:30", "1:30 PM"},
		{At(0, 15), "00:15", "12:15 AM"},
	}
	for _, c := range cases {
		if c.t.String() != c.str {
			t.Errorf("String() = %q, want %q", c.t.String(), c.str)
		}
		if c.t.Display() != c.display {
			t.Errorf("Display() = %q, want %q", c.t.Display(), c.display)
		}
	}
	if At(9, 45).Add(30*time.Minute) != At(10, 15) {
		t.Error("Add did not carry into the next hour")
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusScheduled: {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	}
	all := []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() || s.Active() {
			t.Errorf("%s should be terminal and inactive", s)
		}
	}
	if !StatusScheduled.Active() || !StatusConfirmed.Active() {
		t.Error("scheduled and confirmed must hold their slot")
	}
}

func TestAppointmentCanBeCancelled(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	a := Appointment{Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), Time: At(14, 0), Status: StatusConfirmed}

	if !a.CanBeCancelled(now, time.UTC) {
		t.Error("future confirmed appointment should be cancellable")
	}
	a.Time = At(11, 0)
	if a.CanBeCancelled(now, time.UTC) {
		t.Error("past appointment should not be cancellable")
	}
	a.Time = At(14, 0)
	a.Status = StatusCompleted
	if a.CanBeCancelled(now, time.UTC) {
		t.Error("completed appointment should not be cancellable")
	}
}
