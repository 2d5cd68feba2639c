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

// OrderServiceInterface defines the interface for order business logic.
type OrderServiceInterface interface {
	Create(ctx context.Context, userID int64, req *model.CreateOrderRequest) (*model.Order, error)
	Cancel(ctx context.Context, userID int64, orderID string) error
	Delete(ctx context.Context, userID int64, orderID string) error
	GetByID(ctx context.Context, userID int64, orderID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Order, error)
}

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler with the given service and validator.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

// formatOrderValidationError converts validator errors to stable messages.
func formatOrderValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "ProductID":
				if tag == "required" {
					return "invalid request: product_id is required"
				}
				return "invalid request: product_id is invalid"
			case "OptionName":
				if tag == "required" {
					return "invalid request: option_name is required"
				}
				if tag == "notblank" {
					return "invalid request: option_name cannot be whitespace only"
				}
				return "invalid request: option_name is invalid"
			case "Quantity":
				if tag == "required" {
					return "invalid request: quantity is required"
				}
				return "invalid request: quantity must be between 1 and 100"
			case "TotalPrice":
				if tag == "required" {
					return "invalid request: total_price is required"
				}
				return "invalid request: total_price is invalid"
			case "CouponCode":
				return "invalid request: coupon_code is invalid"
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

// CreateOrder handles POST /api/orders requests.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req model.CreateOrderRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatOrderValidationError(err)})
	}

	userID := middleware.UserID(c)
	order, err := h.service.Create(c.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		case errors.Is(err, service.ErrProductNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product not found"})
		case errors.Is(err, service.ErrInsufficientFunds):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient wallet balance"})
		case errors.Is(err, service.ErrCouponAlreadyUsed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon already used"})
		case errors.Is(err, service.ErrCouponNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon not found"})
		case errors.Is(err, service.ErrCouponIneligible):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coupon not eligible"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", userID).
			Int64("product_id", req.ProductID).
			Msg("failed to create order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("order_id", order.ID).
		Int64("user_id", userID).
		Int64("total_price", order.TotalPrice).
		Int64("discount_amount", order.DiscountAmount).
		Msg("order created")

	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetOrder handles GET /api/orders/:id requests.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetByID(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		log.Error().Err(err).Str("order_id", c.Params("id")).Msg("failed to get order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(order)
}

// ListOrders handles GET /api/orders requests.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListByUser(c.Context(), middleware.UserID(c))
	if err != nil {
		log.Error().Err(err).Int64("user_id", middleware.UserID(c)).Msg("failed to list orders")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// CancelOrder handles PUT /api/orders/:id/cancel requests.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	orderID := c.Params("id")

	if err := h.service.Cancel(c.Context(), userID, orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		if errors.Is(err, service.ErrNotCancellable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order not cancellable"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("order_id", orderID).
			Int64("user_id", userID).
			Msg("failed to cancel order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("order_id", orderID).Int64("user_id", userID).Msg("order cancelled")
	return c.JSON(fiber.Map{"status": "cancelled"})
}

// DeleteOrder handles DELETE /api/orders/:id requests.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), middleware.UserID(c), c.Params("id")); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		if errors.Is(err, service.ErrNotDeletable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order not deletable"})
		}
		log.Error().Err(err).Str("order_id", c.Params("id")).Msg("failed to delete order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
