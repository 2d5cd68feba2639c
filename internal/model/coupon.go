package model

import "time"

// Coupon discount types.
const (
	CouponTypePercentage = "PERCENTAGE"
	CouponTypeFixed      = "FIXED"
)

// Coupon represents a discount coupon in the system.
// Value is a percentage for PERCENTAGE coupons and a smallest-currency-unit
// amount for FIXED coupons. All money fields are integer smallest units.
type Coupon struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Value       int64      `json:"value"`
	MinAmount   int64      `json:"min_amount"`
	MaxDiscount *int64     `json:"max_discount,omitempty"`
	UsageLimit  *int64     `json:"usage_limit,omitempty"`
	UsedCount   int64      `json:"used_count"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"-"` // Not exposed in API
}

// CouponUsage is the durable proof that a user has redeemed a coupon.
// The (coupon_id, user_id) pair is unique at the storage layer; that
// constraint, not any application-level check, is what prevents double
// redemption under concurrent submissions.
type CouponUsage struct {
	CouponID       int64     `json:"coupon_id"`
	UserID         int64     `json:"user_id"`
	OrderID        string    `json:"order_id"`
	DiscountAmount int64     `json:"discount_amount"`
	CreatedAt      time.Time `json:"-"`
}

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	Code        string     `json:"code" validate:"required,couponcode,max=64"`
	Type        string     `json:"type" validate:"required,oneof=PERCENTAGE FIXED"`
	Value       *int64     `json:"value" validate:"required,gte=1"`
	MinAmount   int64      `json:"min_amount" validate:"gte=0"`
	MaxDiscount *int64     `json:"max_discount" validate:"omitempty,gte=1"`
	UsageLimit  *int64     `json:"usage_limit" validate:"omitempty,gte=1"`
	ValidFrom   *time.Time `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
}

// ValidateCouponRequest is the DTO for POST /api/coupons/validate.
type ValidateCouponRequest struct {
	Code        string `json:"code" validate:"required,notblank,max=64"`
	OrderAmount *int64 `json:"order_amount" validate:"required,gte=1"`
}

// CouponValidation is the result of validating a coupon against an order
// amount for a given user. DiscountAmount and FinalAmount are only
// meaningful when the coupon was found eligible.
type CouponValidation struct {
	Coupon         *Coupon `json:"coupon"`
	DiscountAmount int64   `json:"discount_amount"`
	FinalAmount    int64   `json:"final_amount"`
}
