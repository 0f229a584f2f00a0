package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const (
	windowUniqueKey      = "doctor_availability_doctor_day_start_key"
	activeSlotUniqueKey  = "appointments_active_slot_key"
	activeStatusesSQL    = `('scheduled', 'confirmed')`
	windowCols           = `id, doctor_id, day_of_week, start_time, end_time, is_active, created_at, updated_at`
	appointmentCols      = `id, patient_id, doctor_id, date, time, appointment_type, status, reason, notes, duration_minutes, created_at, updated_at`
	qualifiedAppointment = `a.id, a.patient_id, a.doctor_id, a.date, a.time, a.appointment_type, a.status, a.reason, a.notes, a.duration_minutes, a.created_at, a.updated_at`
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func pgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	var day int16
	var start, end pgtype.Time

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&day,
		&start,
		&end,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.DayOfWeek = Weekday(day)
	w.StartTime = fromPgTime(start)
	w.EndTime = fromPgTime(end)
	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var t pgtype.Time
	var apptType, status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&t,
		&apptType,
		&status,
		&a.Reason,
		&a.Notes,
		&a.DurationMinutes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = fromPgTime(t)
	a.Type = AppointmentType(apptType)
	a.Status = Status(status)
	return &a, nil
}

func collectWindows(rows pgx.Rows) ([]AvailabilityWindow, error) {
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Availability store

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ActiveWindows(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowCols+`
		FROM doctor_availability
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active
		ORDER BY start_time
	`, doctorID, int16(day))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) CountWindows(ctx context.Context, doctorID uuid.UUID, day Weekday) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM doctor_availability WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, int16(day)).Scan(&n)
	return n, err
}

func (r *PgRepository) GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+windowCols+` FROM doctor_availability WHERE id = $1`, id)
	return scanWindow(row)
}

func (r *PgRepository) CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+windowCols,
		uuid.New(), w.DoctorID, int16(w.DayOfWeek), pgTime(w.StartTime), pgTime(w.EndTime), w.IsActive)

	created, err := scanWindow(row)
	if db.IsUniqueViolation(err, windowUniqueKey) {
		return nil, ErrDuplicateWindow
	}
	return created, err
}

func (r *PgRepository) CreateWindowIfAbsent(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT ON CONSTRAINT `+windowUniqueKey+` DO NOTHING
		RETURNING `+windowCols,
		uuid.New(), w.DoctorID, int16(w.DayOfWeek), pgTime(w.StartTime), pgTime(w.EndTime), w.IsActive)

	created, err := scanWindow(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrWindowNotFound) {
		return nil, false, err
	}

	// Another request created it first.
	existing, err := scanWindow(r.pool.QueryRow(ctx, `
		SELECT `+windowCols+`
		FROM doctor_availability
		WHERE doctor_id = $1 AND day_of_week = $2 AND start_time = $3
	`, w.DoctorID, int16(w.DayOfWeek), pgTime(w.StartTime)))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PgRepository) UpdateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctor_availability
		SET day_of_week = $2,
		    start_time = $3,
		    end_time = $4,
		    is_active = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+windowCols,
		w.ID, int16(w.DayOfWeek), pgTime(w.StartTime), pgTime(w.EndTime), w.IsActive)

	updated, err := scanWindow(row)
	if db.IsUniqueViolation(err, windowUniqueKey) {
		return nil, ErrDuplicateWindow
	}
	return updated, err
}

func (r *PgRepository) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctor_availability WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

// Booking ledger

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.PatientID != nil {
		where = append(where, "a.patient_id = "+arg(*q.PatientID))
	}
	if q.DoctorID != nil {
		where = append(where, "a.doctor_id = "+arg(*q.DoctorID))
	}
	if q.Status != nil {
		where = append(where, "a.status = "+arg(string(*q.Status)))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p := arg("%" + s + "%")
		where = append(where, fmt.Sprintf(`(a.reason ILIKE %[1]s
			OR d.first_name ILIKE %[1]s OR d.last_name ILIKE %[1]s
			OR p.first_name ILIKE %[1]s OR p.last_name ILIKE %[1]s)`, p))
	}

	sql := `SELECT ` + qualifiedAppointment + `
		FROM appointments a
		JOIN users d ON d.id = a.doctor_id
		JOIN users p ON p.id = a.patient_id`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY a.date DESC, a.time DESC LIMIT " + arg(q.Limit) + " OFFSET " + arg(q.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) HasActiveAppointment(ctx context.Context, doctorID uuid.UUID, date time.Time, t TimeOfDay, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND time = $3
			  AND status IN `+activeStatusesSQL+`
			  AND id <> $4
		)
	`, doctorID, date, pgTime(t), exclude).Scan(&exists)
	return exists, err
}

func (r *PgRepository) ActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT time FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status IN `+activeStatusesSQL+`
		ORDER BY time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeOfDay
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, fromPgTime(t))
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, time, appointment_type, status, reason, notes, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentCols,
		uuid.New(), a.PatientID, a.DoctorID, a.Date, pgTime(a.Time), string(a.Type), string(a.Status),
		a.Reason, a.Notes, a.DurationMinutes)

	created, err := scanAppointment(row)
	if db.IsUniqueViolation(err, activeSlotUniqueKey) {
		return nil, ErrDuplicateSlot
	}
	return created, err
}

func (r *PgRepository) MoveAppointment(ctx context.Context, id, doctorID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_id = $2,
		    date = $3,
		    time = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status IN `+activeStatusesSQL+`
		RETURNING `+appointmentCols,
		id, doctorID, date, pgTime(t))

	moved, err := scanAppointment(row)
	switch {
	case db.IsUniqueViolation(err, activeSlotUniqueKey):
		return nil, ErrDuplicateSlot
	case errors.Is(err, ErrAppointmentNotFound):
		return nil, ErrStaleAppointment
	}
	return moved, err
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, notes *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = COALESCE($4, notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols,
		id, string(to), string(from), notes)

	updated, err := scanAppointment(row)
	switch {
	case db.IsUniqueViolation(err, activeSlotUniqueKey):
		return nil, ErrDuplicateSlot
	case errors.Is(err, ErrAppointmentNotFound):
		return nil, ErrStaleAppointment
	}
	return updated, err
}

// Reminders

func (r *PgRepository) ActiveBetween(ctx context.Context, fromDate, toDate time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE date BETWEEN $1 AND $2
		  AND status IN `+activeStatusesSQL+`
		ORDER BY date, time
	`, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) RecordReminder(ctx context.Context, appointmentID uuid.UUID, reminderType string, hoursBefore int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, reminder_type, hours_before, sent_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT ON CONSTRAINT appointment_reminders_key DO NOTHING
	`, uuid.New(), appointmentID, reminderType, hoursBefore)
	if err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Event logging

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
