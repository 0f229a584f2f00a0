package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool     *pgxpool.Pool
	location *time.Location
}

// NewPgDirectory reads users from Postgres. location is the clinic default
// used for doctors without a timezone of their own.
func NewPgDirectory(pool *pgxpool.Pool, location *time.Location) *PgDirectory {
	return &PgDirectory{pool: pool, location: location}
}

const userCols = `id, first_name, last_name, email, role, account_status, is_active, timezone, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role, status string

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&role,
		&status,
		&u.IsActive,
		&u.Timezone,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	u.Role = ParseRole(role)
	u.AccountStatus = AccountStatus(status)
	return &u, nil
}

func (d *PgDirectory) User(ctx context.Context, id uuid.UUID) (*User, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (d *PgDirectory) Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	u, err := d.User(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return doctorFromUser(u, d.location)
}

func (d *PgDirectory) CurrentRole(ctx context.Context, id uuid.UUID) (Role, error) {
	var role string
	err := d.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND is_active AND account_status = 'active'`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleUnknown, nil
		}
		return RoleUnknown, fmt.Errorf("load role: %w", err)
	}
	return ParseRole(role), nil
}

// ActiveDoctors lists every doctor whose account is active.
func (d *PgDirectory) ActiveDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+userCols+`
		FROM users
		WHERE role = 'doctor' AND account_status = 'active' AND is_active
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		doc, err := doctorFromUser(u, d.location)
		if err != nil {
			continue
		}
		result = append(result, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertUser is used by the seed tool.
func (d *PgDirectory) InsertUser(ctx context.Context, u User) error {
	if u.AccountStatus == "" {
		u.AccountStatus = AccountActive
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, role, account_status, is_active, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, u.ID, u.FirstName, u.LastName, u.Email, string(u.Role), string(u.AccountStatus), u.IsActive, u.Timezone)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
