package scheduling

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// pgRepo connects to POSTGRES_DSN, applies the schema and seeds one doctor and
// two mothers. Rows are removed through the users cascade on cleanup.
func pgRepo(t *testing.T) (*PgRepository, uuid.UUID, [2]uuid.UUID) {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := identity.NewPgDirectory(pool, time.UTC)
	doctor := uuid.New()
	mothers := [2]uuid.UUID{uuid.New(), uuid.New()}
	users := []identity.User{
		{ID: doctor, FirstName: "Grace", LastName: "Hopper", Role: identity.RoleDoctor, IsActive: true},
		{ID: mothers[0], FirstName: "Mary", LastName: "Jackson", Role: identity.RoleMother, IsActive: true},
		{ID: mothers[1], FirstName: "Katherine", LastName: "Johnson", Role: identity.RoleMother, IsActive: true},
	}
	for _, u := range users {
		if err := dir.InsertUser(ctx, u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	t.Cleanup(func() { cleanupUsers(pool, doctor, mothers[0], mothers[1]) })

	return NewPgRepository(pool), doctor, mothers
}

func cleanupUsers(pool *pgxpool.Pool, ids ...uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range ids {
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	}
}

func pgAppointment(patient, doctor uuid.UUID, date time.Time, at TimeOfDay) Appointment {
	return Appointment{
		PatientID:       patient,
		DoctorID:        doctor,
		Date:            date,
		Time:            at,
		Type:            TypeConsultation,
		Status:          StatusScheduled,
		Reason:          "General consultation",
		DurationMinutes: 30,
	}
}

func TestPgRepository_ConcurrentInsertOneWins(t *testing.T) {
	repo, doctor, mothers := pgRepo(t)
	ctx := context.Background()
	date := time.Date(2031, 3, 3, 0, 0, 0, 0, time.UTC)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won, dups int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(patient uuid.UUID) {
			defer wg.Done()
			_, err := repo.InsertAppointment(ctx, pgAppointment(patient, doctor, date, At(10, 0)))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrDuplicateSlot):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(mothers[i%2])
	}
	wg.Wait()

	if won != 1 || dups != 7 {
		t.Fatalf("expected 1 insert and 7 duplicates, got %d and %d", won, dups)
	}
}

func TestPgRepository_CancelThenRebook(t *testing.T) {
	repo, doctor, mothers := pgRepo(t)
	ctx := context.Background()
	date := time.Date(2031, 3, 4, 0, 0, 0, 0, time.UTC)

	first, err := repo.InsertAppointment(ctx, pgAppointment(mothers[0], doctor, date, At(9, 30)))
	if err != nil {
		t.Fatal(err)
	}

	// Optimistic update: the row is scheduled, not confirmed.
	if _, err := repo.UpdateAppointmentStatus(ctx, first.ID, StatusConfirmed, StatusCancelled, nil); !errors.Is(err, ErrStaleAppointment) {
		t.Fatalf("expected ErrStaleAppointment, got %v", err)
	}

	if _, err := repo.UpdateAppointmentStatus(ctx, first.ID, StatusScheduled, StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	second, err := repo.InsertAppointment(ctx, pgAppointment(mothers[1], doctor, date, At(9, 30)))
	if err != nil {
		t.Fatalf("cancelled slot must be bookable again: %v", err)
	}

	// Reviving the cancelled row would collide with the new booking.
	if _, err := repo.UpdateAppointmentStatus(ctx, first.ID, StatusCancelled, StatusScheduled, nil); !errors.Is(err, ErrDuplicateSlot) {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}

	taken, err := repo.HasActiveAppointment(ctx, doctor, date, At(9, 30), second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if taken {
		t.Error("excluding the only active booking should leave the slot free")
	}
}

func TestPgRepository_CreateWindowIfAbsent(t *testing.T) {
	repo, doctor, _ := pgRepo(t)
	ctx := context.Background()
	w := AvailabilityWindow{DoctorID: doctor, DayOfWeek: Tuesday, StartTime: DefaultWindowStart, EndTime: DefaultWindowEnd, IsActive: true}

	first, created, err := repo.CreateWindowIfAbsent(ctx, w)
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}

	second, created, err := repo.CreateWindowIfAbsent(ctx, w)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("expected the existing window back, got created=%v id=%s", created, second.ID)
	}

	if n, _ := repo.CountWindows(ctx, doctor, Tuesday); n != 1 {
		t.Errorf("expected 1 window, got %d", n)
	}
}
