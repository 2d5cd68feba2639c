package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error)
	IncrementUsedCount(ctx context.Context, tx database.TxQuerier, id int64) error
	DecrementUsedCount(ctx context.Context, tx database.TxQuerier, id int64) error
}

// UsageRepositoryInterface defines the interface for coupon usage data access.
type UsageRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error
	Exists(ctx context.Context, couponID, userID int64) (bool, error)
	GetByOrder(ctx context.Context, tx database.TxQuerier, orderID string) (*model.CouponUsage, error)
}

// CouponService provides business logic for coupon operations, including the
// stateless validation used by order creation.
type CouponService struct {
	couponRepo CouponRepositoryInterface
	usageRepo  UsageRepositoryInterface
	now        func() time.Time
}

// NewCouponService creates a new CouponService with the given repositories.
func NewCouponService(couponRepo CouponRepositoryInterface, usageRepo UsageRepositoryInterface) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		now:        time.Now,
	}
}

// NormalizeCode canonicalizes a coupon code: trimmed, uppercased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create creates a new coupon from the request. The code is normalized
// before insertion so lookups at validation time are case-insensitive.
// Returns ErrCouponExists if a coupon with the same code already exists.
// Returns ErrInvalidRequest if request data is nil or incomplete.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.Value == nil {
		return nil, ErrInvalidRequest
	}

	coupon := &model.Coupon{
		Code:        NormalizeCode(req.Code),
		Type:        req.Type,
		Value:       *req.Value,
		MinAmount:   req.MinAmount,
		MaxDiscount: req.MaxDiscount,
		UsageLimit:  req.UsageLimit,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		IsActive:    true,
	}
	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by code.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// Validate checks whether a coupon can be applied by userID to an order of
// orderAmount and computes the discount. It performs lookups only, never
// writes; calling it repeatedly with unchanged state yields the same result.
//
// The usage-limit and per-user checks here run outside the order-creation
// transaction and are therefore advisory; the UNIQUE(coupon_id, user_id)
// constraint enforced during the transaction is the authoritative guard.
//
// Returns:
//   - ErrCouponNotFound when the code resolves to no coupon
//   - ErrCouponAlreadyUsed when the user already redeemed the coupon
//   - ErrCouponIneligible for every other ineligibility
func (s *CouponService) Validate(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error) {
	code = NormalizeCode(code)
	if len(code) < 3 {
		return nil, ErrCouponIneligible
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	now := s.now()
	switch {
	case !coupon.IsActive:
		return nil, ErrCouponIneligible
	case coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom):
		return nil, ErrCouponIneligible
	case coupon.ValidUntil != nil && now.After(*coupon.ValidUntil):
		return nil, ErrCouponIneligible
	case orderAmount < coupon.MinAmount:
		return nil, ErrCouponIneligible
	case coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit:
		return nil, ErrCouponIneligible
	}

	used, err := s.usageRepo.Exists(ctx, coupon.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check coupon usage: %w", err)
	}
	if used {
		return nil, ErrCouponAlreadyUsed
	}

	discount := computeDiscount(coupon, orderAmount)
	final := orderAmount - discount
	if final < 0 {
		final = 0
	}

	return &model.CouponValidation{
		Coupon:         coupon,
		DiscountAmount: discount,
		FinalAmount:    final,
	}, nil
}

// computeDiscount computes the discount amount for an eligible coupon.
// Stored misconfiguration (percentage outside [1,100], negative fixed value)
// is clamped and logged rather than treated as fatal.
func computeDiscount(coupon *model.Coupon, orderAmount int64) int64 {
	var discount int64

	switch coupon.Type {
	case model.CouponTypePercentage:
		pct := coupon.Value
		if pct < 1 || pct > 100 {
			log.Warn().
				Str("coupon_code", coupon.Code).
				Int64("stored_value", pct).
				Msg("percentage coupon value outside [1,100], clamping")
			if pct < 1 {
				pct = 1
			} else {
				pct = 100
			}
		}
		discount = orderAmount * pct / 100
		if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
			discount = *coupon.MaxDiscount
		}
	case model.CouponTypeFixed:
		discount = coupon.Value
		if discount < 0 {
			log.Warn().
				Str("coupon_code", coupon.Code).
				Int64("stored_value", coupon.Value).
				Msg("fixed coupon value negative, clamping to zero")
			discount = 0
		}
		// A fixed discount can never exceed the amount itself.
		if discount > orderAmount {
			discount = orderAmount
		}
	}

	return discount
}
