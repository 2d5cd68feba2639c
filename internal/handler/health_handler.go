package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CachePinger is the go-redis ping surface used by the health check.
type CachePinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool  Pinger
	cache CachePinger
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when no
// rate cache is configured.
func NewHealthHandler(pool Pinger, cache CachePinger) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cache}
}

// Check pings the database and the rate cache.
// The database is load-bearing: unreachable means 503. The cache is not
// (pricing falls back without it), so a cache failure only degrades the
// reported status.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Context()).Err(); err != nil {
			log.Warn().Err(err).Msg("health check: rate cache unreachable")
			return c.JSON(fiber.Map{
				"status": "degraded",
				"cache":  "unavailable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
