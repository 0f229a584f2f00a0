package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Weekday counts from Monday = 0 to Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayOf returns the clinic weekday of a calendar date.
func WeekdayOf(date time.Time) Weekday {
	return Weekday((int(date.Weekday()) + 6) % 7)
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }
func (d Weekday) Weekend() bool { return d == Saturday || d == Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// TimeOfDay is a wall clock time in whole minutes after midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// At builds a TimeOfDay from hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" (seconds must be zero).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Second() != 0 {
			return 0, fmt.Errorf("time %q: seconds are not supported", s)
		}
		return At(t.Hour(), t.Minute()), nil
	}
	return 0, fmt.Errorf("time %q: expected HH:MM", s)
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }
func (t TimeOfDay) Hour() int { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders 24 hour "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Display renders "h:mm AM".
func (t TimeOfDay) Display() string {
	return time.Date(2000, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format("3:04 PM")
}

// Add returns t shifted by d, not wrapped past midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// On combines a calendar date with t in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// DateOf truncates t to its calendar date, represented as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ActiveStatuses are the statuses that hold a slot. Every ledger query and the
// partial unique index on appointments use exactly this set.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, true
	}
	return "", false
}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Label is the human form used in notifications.
func (s Status) Label() string {
	switch s {
	case StatusNoShow:
		return "No Show"
	case "":
		return ""
	default:
		return strings.ToUpper(string(s[:1])) + string(s[1:])
	}
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeCheckup      AppointmentType = "checkup"
	TypePrenatal     AppointmentType = "prenatal"
	TypePostnatal    AppointmentType = "postnatal"
	TypeEmergency    AppointmentType = "emergency"
	TypeFollowUp     AppointmentType = "follow_up"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeCheckup, TypePrenatal, TypePostnatal, TypeEmergency, TypeFollowUp:
		return true
	}
	return false
}

const (
	DefaultReason          = "General consultation"
	DefaultDurationMinutes = 30
)

type AvailabilityWindow struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether t falls in [start, end).
func (w AvailabilityWindow) Covers(t TimeOfDay) bool {
	return w.StartTime <= t && t < w.EndTime
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	Date            time.Time
	Time            TimeOfDay
	Type            AppointmentType
	Status          Status
	Reason          string
	Notes           string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StartsAt is the appointment's instant in loc.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Time.On(a.Date, loc)
}

func (a Appointment) IsPast(now time.Time, loc *time.Location) bool {
	return a.StartsAt(loc).Before(now)
}

// CanBeCancelled holds for future appointments that still hold their slot.
func (a Appointment) CanBeCancelled(now time.Time, loc *time.Location) bool {
	return !a.IsPast(now, loc) && a.Status.Active()
}

// Slot is a derived bookable time; it is never stored.
type Slot struct {
	Time        TimeOfDay
	IsAvailable bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
