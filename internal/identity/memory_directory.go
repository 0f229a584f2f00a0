package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-memory Directory for tests and local tooling.
type MemoryDirectory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]User
	location *time.Location
}

func NewMemoryDirectory(location *time.Location) *MemoryDirectory {
	return &MemoryDirectory{
		users:    make(map[uuid.UUID]User),
		location: location,
	}
}

// Add stores u, assigning an id when it has none, and returns the id.
func (d *MemoryDirectory) Add(u User) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.AccountStatus == "" {
		u.AccountStatus = AccountActive
	}
	d.users[u.ID] = u
	return u.ID
}

func (d *MemoryDirectory) User(_ context.Context, id uuid.UUID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	u, err := d.User(ctx, id)
	if err != nil {
		return nil, ErrDoctorNotFound
	}
	return doctorFromUser(u, d.location)
}

func (d *MemoryDirectory) CurrentRole(ctx context.Context, id uuid.UUID) (Role, error) {
	u, err := d.User(ctx, id)
	if err != nil || !u.Active() {
		return RoleUnknown, nil
	}
	return u.Role, nil
}
