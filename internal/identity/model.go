// Package identity is the boundary to the clinic's user records. It resolves
// a caller's role once and hands the rest of the system a typed Actor.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUnknown Role = ""
	RoleMother  Role = "mother"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a stored role name to a Role. Anything outside the closed
// set yields RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMother:
		return RoleMother
	case RoleDoctor:
		return RoleDoctor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) Known() bool {
	return r != RoleUnknown
}

type AccountStatus string

const (
	AccountActive      AccountStatus = "active"
	AccountDeactivated AccountStatus = "deactivated"
)

type User struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	Email         *string
	Role          Role
	AccountStatus AccountStatus
	IsActive      bool
	Timezone      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Active mirrors the profile rule: the account is active and the login is enabled.
func (u User) Active() bool {
	return u.AccountStatus == AccountActive && u.IsActive
}

// Doctor is a User already checked to be an active doctor.
type Doctor struct {
	User
	Location *time.Location
}

// DisplayName is the name used in patient-facing messages.
func (d Doctor) DisplayName() string {
	return "Dr. " + d.FullName()
}

// Actor is the capability token passed into the scheduling core. It is built
// at the HTTP boundary after the role lookup and never re-derived.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsMother() bool { return a.Role == RoleMother }
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Is reports whether the actor is the given user.
func (a Actor) Is(id uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == id
}
