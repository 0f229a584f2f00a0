package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

var (
	monday   = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc   *Service
	repo  *MemoryRepository
	dir   *identity.MemoryDirectory
	sink  *notification.Recorder
	clock *mutableClock

	doctor  uuid.UUID
	doctor2 uuid.UUID
	mother  uuid.UUID
	mother2 uuid.UUID
	admin   uuid.UUID
}

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

// newFixture starts the clock on Saturday 2024-06-01 so the test week is in the future.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:  NewMemoryRepository(),
		dir:   identity.NewMemoryDirectory(time.UTC),
		sink:  &notification.Recorder{},
		clock: &mutableClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
	}
	f.doctor = f.dir.Add(identity.User{FirstName: "Grace", LastName: "Hopper", Role: identity.RoleDoctor, IsActive: true})
	f.doctor2 = f.dir.Add(identity.User{FirstName: "Alan", LastName: "Turing", Role: identity.RoleDoctor, IsActive: true})
	f.mother = f.dir.Add(identity.User{FirstName: "Mary", LastName: "Jackson", Role: identity.RoleMother, IsActive: true})
	f.mother2 = f.dir.Add(identity.User{FirstName: "Katherine", LastName: "Johnson", Role: identity.RoleMother, IsActive: true})
	f.admin = f.dir.Add(identity.User{FirstName: "Root", LastName: "Admin", Role: identity.RoleAdmin, IsActive: true})

	cfg := config.Config{
		Location:        time.UTC,
		SlotGranularity: 30 * time.Minute,
		SuggestionLimit: 5,
		ReminderLead:    24 * time.Hour,
	}
	f.svc = NewService(f.repo, f.dir, f.sink, cfg, WithClock(f.clock))
	return f
}

func (f *fixture) as(id uuid.UUID) identity.Actor {
	u, err := f.dir.User(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return identity.Actor{UserID: id, Role: u.Role}
}

func (f *fixture) addWindow(t *testing.T, doctor uuid.UUID, day Weekday, start, end TimeOfDay) *AvailabilityWindow {
	t.Helper()
	w, err := f.svc.CreateWindow(context.Background(), f.as(doctor), WindowInput{DayOfWeek: day, StartTime: start, EndTime: end})
	if err != nil {
		t.Fatalf("create window: %v", err)
	}
	return w
}

func (f *fixture) book(t *testing.T, patient uuid.UUID, date time.Time, at TimeOfDay) *Appointment {
	t.Helper()
	appt, err := f.svc.BookAppointment(context.Background(), f.as(patient), BookingInput{
		DoctorID: f.doctor,
		Date:     date,
		Time:     at,
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", date.Format(time.DateOnly), at, err)
	}
	return appt
}

func (f *fixture) eventCount(eventType string) int {
	n := 0
	for _, ev := range f.repo.Events() {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

func validationErr(t *testing.T, err error, rule error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !errors.Is(err, rule) {
		t.Fatalf("expected %v, got %v", rule, err)
	}
	return ve
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(NewMemoryRepository(), identity.NewMemoryDirectory(nil), nil, config.Config{})
	if svc.cfg.Location != time.UTC {
		t.Errorf("expected UTC fallback, got %v", svc.cfg.Location)
	}
	if svc.cfg.SlotGranularity != 30*time.Minute {
		t.Errorf("expected 30m granularity, got %s", svc.cfg.SlotGranularity)
	}
	if _, ok := svc.clock.(SystemClock); !ok {
		t.Errorf("expected system clock, got %T", svc.clock)
	}
}
