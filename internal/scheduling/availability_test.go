package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func TestCreateWindow_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateWindow(ctx, f.as(f.mother), WindowInput{DayOfWeek: Monday, StartTime: At(9, 0), EndTime: At(12, 0)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("mother creating a window: expected ErrForbidden, got %v", err)
	}

	_, err = f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Monday, StartTime: At(12, 0), EndTime: At(12, 0)})
	validationErr(t, err, ErrInvalidWindow)

	_, err = f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Weekday(7), StartTime: At(9, 0), EndTime: At(12, 0)})
	validationErr(t, err, ErrInvalidInput)

	f.addWindow(t, f.doctor, Monday, At(9, 0), At(12, 0))
	_, err = f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Monday, StartTime: At(9, 0), EndTime: At(10, 0)})
	validationErr(t, err, ErrDuplicateWindow)

	// Same start on another doctor's calendar is fine.
	f.addWindow(t, f.doctor2, Monday, At(9, 0), At(12, 0))
}

func TestUpdateAndDeleteWindow_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWindow(t, f.doctor, Tuesday, At(9, 0), At(12, 0))

	off := false
	_, err := f.svc.UpdateWindow(ctx, f.as(f.doctor2), w.ID, WindowInput{DayOfWeek: Tuesday, StartTime: At(9, 0), EndTime: At(11, 0)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	updated, err := f.svc.UpdateWindow(ctx, f.as(f.doctor), w.ID, WindowInput{DayOfWeek: Tuesday, StartTime: At(8, 0), EndTime: At(11, 0), IsActive: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StartTime != At(8, 0) || updated.IsActive {
		t.Errorf("unexpected window after update: %+v", updated)
	}

	if err := f.svc.DeleteWindow(ctx, f.as(f.doctor2), w.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.DeleteWindow(ctx, f.as(f.doctor), w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.DeleteWindow(ctx, f.as(f.doctor), w.ID); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
}

func TestWindows_ActiveOnlyOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false

	f.addWindow(t, f.doctor, Wednesday, At(14, 0), At(16, 0))
	f.addWindow(t, f.doctor, Wednesday, At(8, 0), At(10, 0))
	if _, err := f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Wednesday, StartTime: At(11, 0), EndTime: At(12, 0), IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	ws, err := f.svc.Windows(ctx, f.doctor, Wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 2 || ws[0].StartTime != At(8, 0) || ws[1].StartTime != At(14, 0) {
		t.Fatalf("unexpected windows: %+v", ws)
	}

	all, err := f.svc.ListDoctorWindows(ctx, f.doctor)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 windows including the inactive one, got %d", len(all))
	}
}

func TestEnsureDefault_WeekdaysOnceEach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for day := Monday; day <= Friday; day++ {
		first, err := f.svc.EnsureDefault(ctx, f.doctor, day)
		if err != nil {
			t.Fatalf("%s: %v", day, err)
		}
		if first == nil || first.StartTime != At(9, 0) || first.EndTime != At(17, 0) || !first.IsActive {
			t.Fatalf("%s: unexpected default window %+v", day, first)
		}

		second, err := f.svc.EnsureDefault(ctx, f.doctor, day)
		if err != nil {
			t.Fatalf("%s: %v", day, err)
		}
		if second == nil || second.ID != first.ID {
			t.Fatalf("%s: second call returned a different window", day)
		}

		n, _ := f.repo.CountWindows(ctx, f.doctor, day)
		if n != 1 {
			t.Fatalf("%s: expected exactly one window, got %d", day, n)
		}
	}

	if got := f.eventCount(EventAvailabilityProvisioned); got != 5 {
		t.Errorf("expected 5 provisioning events, got %d", got)
	}
}

func TestEnsureDefault_Weekend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, day := range []Weekday{Saturday, Sunday} {
		w, err := f.svc.EnsureDefault(ctx, f.doctor, day)
		if err != nil || w != nil {
			t.Fatalf("%s: expected nil, nil; got %+v, %v", day, w, err)
		}
		if n, _ := f.repo.CountWindows(ctx, f.doctor, day); n != 0 {
			t.Fatalf("%s: weekend window was created", day)
		}
	}
}

func TestEnsureDefault_RequiresDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	retired := f.dir.Add(identity.User{FirstName: "Old", LastName: "Doc", Role: identity.RoleDoctor, IsActive: true, AccountStatus: identity.AccountDeactivated})

	for name, id := range map[string]uuid.UUID{"mother": f.mother, "admin": f.admin, "deactivated": retired, "unknown": uuid.New()} {
		w, err := f.svc.EnsureDefault(ctx, id, Monday)
		if !errors.Is(err, identity.ErrDoctorNotFound) {
			t.Errorf("%s: expected ErrDoctorNotFound, got %+v, %v", name, w, err)
		}
		if n, _ := f.repo.CountWindows(ctx, id, Monday); n != 0 {
			t.Errorf("%s: window stored for a non-doctor", name)
		}
	}
	if got := f.eventCount(EventAvailabilityProvisioned); got != 0 {
		t.Errorf("expected no provisioning events, got %d", got)
	}
}

func TestEnsureDefault_KeepsDayOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false

	if _, err := f.svc.CreateWindow(ctx, f.as(f.doctor), WindowInput{DayOfWeek: Thursday, StartTime: At(9, 0), EndTime: At(17, 0), IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	w, err := f.svc.EnsureDefault(ctx, f.doctor, Thursday)
	if err != nil || w != nil {
		t.Fatalf("expected nil, nil for a disabled day; got %+v, %v", w, err)
	}
	if n, _ := f.repo.CountWindows(ctx, f.doctor, Thursday); n != 1 {
		t.Fatalf("expected the disabled window only, got %d windows", n)
	}
}

func TestEnsureDefault_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := f.svc.EnsureDefault(ctx, f.doctor, Monday)
			if err != nil {
				t.Errorf("ensure default: %v", err)
				return
			}
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	if n, _ := f.repo.CountWindows(ctx, f.doctor, Monday); n != 1 {
		t.Fatalf("expected one window after concurrent provisioning, got %d", n)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatal("concurrent callers saw different windows")
		}
	}
}
