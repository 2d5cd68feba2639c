package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RateProviderInterface serves normalized display rates.
type RateProviderInterface interface {
	DisplayRate(ctx context.Context, pair string) (int64, error)
}

// RatesHandler handles HTTP requests for currency rates.
type RatesHandler struct {
	provider RateProviderInterface
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(provider RateProviderInterface) *RatesHandler {
	return &RatesHandler{provider: provider}
}

// GetRate handles GET /api/rates/:pair requests.
func (h *RatesHandler) GetRate(c *fiber.Ctx) error {
	pair := c.Params("pair")
	if pair == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: pair is required"})
	}

	rate, err := h.provider.DisplayRate(c.Context(), pair)
	if err != nil {
		log.Error().Err(err).Str("pair", pair).Msg("failed to get display rate")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "rate unavailable"})
	}

	return c.JSON(fiber.Map{"pair": pair, "rate": rate})
}
