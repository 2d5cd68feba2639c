package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/internal/service"
)

// CouponAdminInterface defines coupon management operations.
type CouponAdminInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// OrderAdminInterface defines order management operations.
type OrderAdminInterface interface {
	Refund(ctx context.Context, orderID string) (int64, error)
	UpdateStatus(ctx context.Context, orderID string, next model.OrderStatus) error
}

// AdminHandler handles the admin API surface.
type AdminHandler struct {
	coupons   CouponAdminInterface
	orders    OrderAdminInterface
	validator *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(coupons CouponAdminInterface, orders OrderAdminInterface, v *validator.Validate) *AdminHandler {
	return &AdminHandler{coupons: coupons, orders: orders, validator: v}
}

// formatCreateCouponError converts validator errors to stable messages.
func formatCreateCouponError(err error) string {
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
				if tag == "couponcode" {
					return "invalid request: code must be at least 3 characters"
				}
				return "invalid request: code is invalid"
			case "Type":
				if tag == "required" {
					return "invalid request: type is required"
				}
				return "invalid request: type must be PERCENTAGE or FIXED"
			case "Value":
				if tag == "required" {
					return "invalid request: value is required"
				}
				return "invalid request: value must be at least 1"
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

// CreateCoupon handles POST /api/admin/coupons requests.
func (h *AdminHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatCreateCouponError(err)})
	}

	coupon, err := h.coupons.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already exists"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("coupon_code", req.Code).Msg("failed to create coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// GetCoupon handles GET /api/admin/coupons/:code requests.
func (h *AdminHandler) GetCoupon(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	coupon, err := h.coupons.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		log.Error().Err(err).Str("coupon_code", code).Msg("failed to get coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(coupon)
}

// RefundOrder handles POST /api/admin/orders/:id/refund requests.
func (h *AdminHandler) RefundOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	amount, err := h.orders.Refund(c.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		case errors.Is(err, service.ErrAlreadyRefunded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order already refunded"})
		case errors.Is(err, service.ErrNotRefundable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order not refundable"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("order_id", orderID).
			Msg("failed to refund order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("order_id", orderID).Int64("refund_amount", amount).Msg("order refunded")
	return c.JSON(fiber.Map{"refund_amount": amount})
}

// UpdateOrderStatus handles PUT /api/admin/orders/:id/status requests.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req model.UpdateOrderStatusRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: status must be PROCESSING, COMPLETED or FAILED"})
	}

	orderID := c.Params("id")
	if err := h.orders.UpdateStatus(c.Context(), orderID, model.OrderStatus(req.Status)); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status transition"})
		}
		log.Error().Err(err).Str("order_id", orderID).Str("status", req.Status).Msg("failed to update order status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"status": req.Status})
}
