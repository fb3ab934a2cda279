package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/persistence"
)

type dependencyCheck struct {
	name     string
	required bool
	probe    func(context.Context) (string, error)
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []dependencyCheck
}

// NewHealthHandler returns a new handler instance. Postgres readiness is only
// required when a pool is configured. Redis is reported but optional.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, uploadDir string) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks: []dependencyCheck{
			{name: "postgres", required: true, probe: func(ctx context.Context) (string, error) {
				if !postgres.Enabled() {
					return "in-memory", nil
				}
				return "ok", postgres.Ping(ctx)
			}},
			{name: "redis", probe: func(ctx context.Context) (string, error) {
				return "ok", redis.Ping(ctx)
			}},
			{name: "storage", required: true, probe: func(context.Context) (string, error) {
				info, err := os.Stat(uploadDir)
				if err != nil {
					return "", err
				}
				if !info.IsDir() {
					return "", fmt.Errorf("%s is not a directory", uploadDir)
				}
				return "ok", nil
			}},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready runs every dependency probe and fails when a required one does.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for _, check := range h.checks {
		status, err := check.probe(ctx)
		if err != nil {
			depStatus[check.name] = err.Error()
			ready = ready && !check.required
			continue
		}
		depStatus[check.name] = status
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
