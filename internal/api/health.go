package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

// DependencyCheck is one readiness dependency. A failing required check
// makes the API unready; an optional one only degrades it.
type DependencyCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// PostgresCheck pings the pool. Bookings cannot be taken without it.
func PostgresCheck(pool *pgxpool.Pool) DependencyCheck {
	return DependencyCheck{Name: "postgres", Required: true, Ping: pool.Ping}
}

// SchemaCheck fails while embedded migrations are unapplied, since the
// active-slot index is what stops double booking.
func SchemaCheck(pool *pgxpool.Pool) DependencyCheck {
	return DependencyCheck{
		Name:     "schema",
		Required: true,
		Ping: func(ctx context.Context) error {
			pending, err := db.Pending(ctx, pool)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return fmt.Errorf("%d migrations pending", len(pending))
			}
			return nil
		},
	}
}

// RedisCheck pings Redis, which only carries live notifications.
func RedisCheck(client *redis.Client) DependencyCheck {
	return DependencyCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

type HealthHandler struct {
	checks  []DependencyCheck
	env     string
	version string
}

func NewHealthHandler(env, version string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{checks: checks, env: env, version: version}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "ok", Version: h.version, Env: h.env})
}

// Readiness runs every check with its own one second budget. Status is
// "error" (503) when a required check fails, "degraded" when only optional
// ones do, "ok" otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{
		Status:       "ok",
		Version:      h.version,
		Env:          h.env,
		Dependencies: make(map[string]string, len(h.checks)),
	}

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		err := c.Ping(ctx)
		cancel()

		if err == nil {
			resp.Dependencies[c.Name] = "ok"
			continue
		}
		resp.Dependencies[c.Name] = "down"
		switch {
		case c.Required:
			resp.Status = "error"
		case resp.Status == "ok":
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status == "error" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
