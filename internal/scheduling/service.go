// Package scheduling is the appointment engine: availability windows, slot
// generation, booking validation and the appointment lifecycle.
package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

const (
	EventAvailabilityProvisioned = "AVAILABILITY_PROVISIONED"
	EventAppointmentBooked       = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled  = "APPOINTMENT_RESCHEDULED"
	EventAppointmentTransitioned = "APPOINTMENT_STATUS_CHANGED"
	EventReminderSent            = "APPOINTMENT_REMINDER_SENT"
)

type Service struct {
	repo  Repository
	dir   identity.Directory
	sink  notification.Sink
	cfg   config.Config
	clock Clock
	log   zerolog.Logger
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(repo Repository, dir identity.Directory, sink notification.Sink, cfg config.Config, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = 30 * time.Minute
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 24 * time.Hour
	}

	s := &Service{
		repo:  repo,
		dir:   dir,
		sink:  sink,
		cfg:   cfg,
		clock: SystemClock{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("insert event log")
	}
}

// notify never fails the caller; the ledger write has already happened.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, message string) {
	if s.sink == nil {
		return
	}
	n := notification.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  notification.CategoryAppointment,
		CreatedAt: s.now(),
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Str("title", title).Msg("notification failed")
	}
}

// doctor resolves a doctor and the location their wall-clock times are in.
func (s *Service) doctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, err := s.dir.Doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Location == nil {
		d.Location = s.cfg.Location
	}
	return d, nil
}

// today is the current calendar date in loc.
func (s *Service) today(loc *time.Location) time.Time {
	return DateOf(s.now().In(loc))
}

// userName falls back to a neutral label when the lookup fails.
func (s *Service) userName(ctx context.Context, id uuid.UUID) string {
	u, err := s.dir.User(ctx, id)
	if err != nil {
		return "A patient"
	}
	return u.FullName()
}
