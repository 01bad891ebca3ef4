package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/persistence"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version  string
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{version: version, postgres: postgres, redis: redis}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready reports dependency readiness. Redis is an optional degradation, not
// a readiness failure, since fanout is best-effort.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if err := h.postgres.Ping(c.Context()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(c.Context()); err != nil {
		checks["redis"] = "degraded: " + err.Error()
	} else {
		checks["redis"] = "ok"
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"checks": checks, "version": h.version})
}
