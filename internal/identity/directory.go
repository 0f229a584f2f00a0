package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDoctorNotFound = errors.New("doctor not found")
)

// Directory is what the scheduler needs from the user store.
type Directory interface {
	// User returns any user by id.
	User(ctx context.Context, id uuid.UUID) (*User, error)

	// Doctor fails with ErrDoctorNotFound when the id is unknown, the user is
	// not a doctor, or the account is inactive.
	Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// CurrentRole returns RoleUnknown with a nil error when the user has no
	// profile or the account is not active; errors are reserved for lookup
	// failures.
	CurrentRole(ctx context.Context, id uuid.UUID) (Role, error)
}

// doctorFromUser applies the doctor checks shared by every Directory.
func doctorFromUser(u *User, fallback *time.Location) (*Doctor, error) {
	if u == nil || u.Role != RoleDoctor || !u.Active() {
		return nil, ErrDoctorNotFound
	}

	loc := fallback
	if loc == nil {
		loc = time.UTC
	}
	if u.Timezone != nil && *u.Timezone != "" {
		if l, err := time.LoadLocation(*u.Timezone); err == nil {
			loc = l
		}
	}

	return &Doctor{User: *u, Location: loc}, nil
}
