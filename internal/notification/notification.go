// Package notification records that something happened for a user. Delivery
// over email or SMS is not handled here; sinks only store or publish the event.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAppointment Category = "appointment"
	CategorySystem      Category = "system"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink accepts notifications. Callers treat it as fire-and-forget.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Fanout sends to every sink and joins their errors; one failing sink does not
// stop the others.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Err  error // returned from Notify after recording, when set
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// For returns the notifications addressed to userID.
func (r *Recorder) For(userID uuid.UUID) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
