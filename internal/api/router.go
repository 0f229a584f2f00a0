package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service   *scheduling.Service
	Directory identity.Directory
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	log := cfg.Logger

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoveryMiddleware(log))

	// Health endpoints
	var checks []DependencyCheck
	if cfg.PgPool != nil {
		checks = append(checks, PostgresCheck(cfg.PgPool), SchemaCheck(cfg.PgPool))
	}
	if cfg.Redis != nil {
		checks = append(checks, RedisCheck(cfg.Redis))
	}
	health := NewHealthHandler(cfg.Env, cfg.Version, checks...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public availability lookups
	r.Get("/availability/check", availabilityCheckHandler(cfg.Service, log))
	r.Get("/doctors/{id}/availability", doctorWindowsHandler(cfg.Service, log))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Service, log))

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware(cfg.Directory, log))

		// Availability window endpoints
		r.Post("/availability", createWindowHandler(cfg.Service, log))
		r.Put("/availability/{id}", updateWindowHandler(cfg.Service, log))
		r.Delete("/availability/{id}", deleteWindowHandler(cfg.Service, log))

		// Appointment endpoints
		r.Post("/appointments", createAppointmentHandler(cfg.Service, log))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service, log))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service, log))
		r.Patch("/appointments/{id}", rescheduleAppointmentHandler(cfg.Service, log))
		r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Service, log, scheduling.StatusConfirmed))
		r.Post("/appointments/{id}/decline", transitionHandler(cfg.Service, log, scheduling.StatusCancelled))
		r.Post("/appointments/{id}/complete", transitionHandler(cfg.Service, log, scheduling.StatusCompleted))
		r.Post("/appointments/{id}/no-show", transitionHandler(cfg.Service, log, scheduling.StatusNoShow))
		r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Service, log, scheduling.StatusCancelled))
	})

	return r
}
