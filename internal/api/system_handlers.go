package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// handleGetSystemHealth handles GET /api/system/health
func (s *Server) handleGetSystemHealth(c *fiber.Ctx) error {
	health := HealthResponse{
		Status: "healthy",
		State:  s.cache.State(),
		Ready:  s.cache.Ready(),
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	}

	switch health.State {
	case "ready":
	case "failed":
		// Cache operations still work without the index, just slower.
		health.Status = "degraded"
	default:
		health.Status = "starting"
	}

	return RespondSuccess(c, health)
}
