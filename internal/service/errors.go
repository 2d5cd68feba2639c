package service

import "errors"

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering with an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when login credentials do not match
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCouponExists is returned when attempting to create a coupon that already exists
	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponIneligible is returned when a coupon exists but cannot be applied
	// to the given order (inactive, outside its validity window, below the
	// minimum amount, or over its usage limit)
	ErrCouponIneligible = errors.New("coupon not eligible")

	// ErrCouponAlreadyUsed is returned when the user has already redeemed the coupon
	ErrCouponAlreadyUsed = errors.New("coupon already used")

	// ErrProductNotFound is returned when a product is absent or inactive
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientFunds is returned when the wallet balance cannot cover the order
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrOrderNotFound is returned when an order is absent or not owned by the caller
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotCancellable is returned when an order is not in a cancellable state
	ErrNotCancellable = errors.New("order not cancellable")

	// ErrNotRefundable is returned when an order is not in a refundable state
	ErrNotRefundable = errors.New("order not refundable")

	// ErrAlreadyRefunded is returned when an order was already refunded
	ErrAlreadyRefunded = errors.New("order already refunded")

	// ErrNotDeletable is returned when deleting an order that still has financial effects
	ErrNotDeletable = errors.New("order not deletable")

	// ErrInvalidTransition is returned for a status change the state machine forbids
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDepositNotFound is returned when a deposit authority is unknown
	ErrDepositNotFound = errors.New("deposit not found")

	// ErrDepositSettled is returned when a deposit was already verified or failed
	ErrDepositSettled = errors.New("deposit already settled")

	// ErrPaymentFailed is returned when the gateway reports a final non-successful payment
	ErrPaymentFailed = errors.New("payment not completed")

	// ErrUpstream is returned when a payment gateway is unreachable or erroring
	ErrUpstream = errors.New("payment gateway error")
)
