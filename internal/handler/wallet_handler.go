package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/middleware"
	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/internal/service"
)

// WalletServiceInterface defines the interface for wallet business logic.
type WalletServiceInterface interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Deposit(ctx context.Context, userID int64, req *model.CreateDepositRequest) (*model.DepositResponse, error)
	VerifyDeposit(ctx context.Context, authority string) (*model.Deposit, error)
}

// WalletHandler handles HTTP requests for wallet operations.
type WalletHandler struct {
	service   WalletServiceInterface
	validator *validator.Validate
}

// NewWalletHandler creates a new WalletHandler with the given service and validator.
func NewWalletHandler(svc WalletServiceInterface, v *validator.Validate) *WalletHandler {
	return &WalletHandler{service: svc, validator: v}
}

// formatDepositValidationError converts validator errors to stable messages.
func formatDepositValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Amount":
				if tag == "required" {
					return "invalid request: amount is required"
				}
				return "invalid request: amount must be at least 1"
			case "Gateway":
				if tag == "required" {
					return "invalid request: gateway is required"
				}
				return "invalid request: gateway must be FIAT or CRYPTO"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// GetWallet handles GET /api/wallet requests.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		log.Error().Err(err).Int64("user_id", middleware.UserID(c)).Msg("failed to get wallet balance")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(model.WalletResponse{Balance: balance})
}

// CreateDeposit handles POST /api/wallet/deposits requests.
func (h *WalletHandler) CreateDeposit(c *fiber.Ctx) error {
	var req model.CreateDepositRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatDepositValidationError(err)})
	}

	userID := middleware.UserID(c)
	resp, err := h.service.Deposit(c.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		case errors.Is(err, service.ErrUpstream):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment gateway error"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", userID).
			Msg("failed to create deposit")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// VerifyDeposit handles GET /api/wallet/deposits/verify requests, the
// gateway callback target.
func (h *WalletHandler) VerifyDeposit(c *fiber.Ctx) error {
	authority := c.Query("authority")
	if authority == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: authority is required"})
	}

	deposit, err := h.service.VerifyDeposit(c.Context(), authority)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDepositNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "deposit not found"})
		case errors.Is(err, service.ErrDepositSettled):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deposit already settled"})
		case errors.Is(err, service.ErrPaymentFailed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment not completed"})
		case errors.Is(err, service.ErrUpstream):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment gateway error"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Msg("failed to verify deposit")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("deposit_id", deposit.ID).Int64("amount", deposit.Amount).Msg("deposit verified")
	return c.JSON(fiber.Map{"amount": deposit.Amount, "status": deposit.Status})
}
