package model

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order lifecycle states. CANCELLED and REFUNDED are terminal and both
// reverse the order's financial effects; FAILED is terminal without effects
// to reverse (the creating transaction never committed past it).
const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from s to
// next:
//
//	PENDING -> PROCESSING -> COMPLETED
//	PENDING -> CANCELLED
//	PROCESSING, COMPLETED -> REFUNDED
//	any non-terminal -> FAILED
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case OrderStatusProcessing:
		return s == OrderStatusPending
	case OrderStatusCompleted:
		return s == OrderStatusProcessing
	case OrderStatusCancelled:
		return s == OrderStatusPending
	case OrderStatusRefunded:
		return s == OrderStatusProcessing || s == OrderStatusCompleted
	case OrderStatusFailed:
		return true
	}
	return false
}

// Order represents a placed order. TotalPrice is the amount actually
// deducted from the wallet at creation time (post-discount); cancel and
// refund credit exactly this amount back.
type Order struct {
	ID             string      `json:"id"`
	UserID         int64       `json:"user_id"`
	ProductID      int64       `json:"product_id"`
	OptionName     string      `json:"option_name"`
	Quantity       int         `json:"quantity"`
	TotalPrice     int64       `json:"total_price"`
	DiscountAmount int64       `json:"discount_amount"`
	CouponID       *int64      `json:"coupon_id,omitempty"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CreateOrderRequest is the DTO for POST /api/orders.
type CreateOrderRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gte=1"`
	OptionName string `json:"option_name" validate:"required,notblank,max=255"`
	Quantity   int    `json:"quantity" validate:"required,gte=1,lte=100"`
	TotalPrice *int64 `json:"total_price" validate:"required,gte=1"`
	CouponCode string `json:"coupon_code" validate:"omitempty,max=64"`
}

// UpdateOrderStatusRequest is the DTO for the admin status transition.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PROCESSING COMPLETED FAILED"`
}
