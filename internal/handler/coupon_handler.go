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

// CouponValidatorInterface defines the coupon validation surface exposed to users.
type CouponValidatorInterface interface {
	Validate(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error)
}

// CouponHandler handles HTTP requests for user-facing coupon operations.
type CouponHandler struct {
	service   CouponValidatorInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponValidatorInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// formatCouponValidationError converts validator errors to stable messages.
func formatCouponValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Code":
				if tag == "required" {
					return "invalid request: code is required"
				}
				if tag == "notblank" {
					return "invalid request: code cannot be whitespace only"
				}
				if tag == "max" {
					return "invalid request: code exceeds maximum length of 64"
				}
				return "invalid request: code is invalid"
			case "OrderAmount":
				if tag == "required" {
					return "invalid request: order_amount is required"
				}
				if tag == "gte" {
					return "invalid request: order_amount must be at least 1"
				}
				return "invalid request: order_amount is invalid"
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

// ValidateCoupon handles POST /api/coupons/validate requests: it reports
// eligibility and the computed discount without redeeming anything.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req model.ValidateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatCouponValidationError(err)})
	}

	userID := middleware.UserID(c)
	result, err := h.service.Validate(c.Context(), req.Code, userID, *req.OrderAmount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon not found"})
		case errors.Is(err, service.ErrCouponAlreadyUsed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon already used"})
		case errors.Is(err, service.ErrCouponIneligible):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon not eligible"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", userID).
			Msg("failed to validate coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(result)
}
