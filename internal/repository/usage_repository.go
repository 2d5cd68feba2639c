package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/internal/service"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// UsageRepository provides data access for coupon usage records using pgx.
type UsageRepository struct {
	pool database.TxQuerier
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a new UsageRepository with a custom
// querier. This is primarily used for testing.
func NewUsageRepositoryWithPool(pool database.TxQuerier) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert inserts a coupon usage record within a transaction. The
// UNIQUE(coupon_id, user_id) constraint is the authoritative guard against
// double redemption; a violation means a concurrent duplicate won the race.
// Returns service.ErrCouponAlreadyUsed on that violation.
func (r *UsageRepository) Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error {
	query := `INSERT INTO coupon_usages (coupon_id, user_id, order_id, discount_amount)
	          VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query,
		usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountAmount)
	if err != nil {
		if database.UniqueViolation(err) {
			return service.ErrCouponAlreadyUsed
		}
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	return nil
}

// Exists reports whether a usage record exists for (couponID, userID).
func (r *UsageRepository) Exists(ctx context.Context, couponID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, couponID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check coupon usage for coupon %d user %d: %w", couponID, userID, err)
	}
	return exists, nil
}

// GetByOrder retrieves the usage record attached to an order.
// Returns nil, nil if the order redeemed no coupon.
func (r *UsageRepository) GetByOrder(ctx context.Context, tx database.TxQuerier, orderID string) (*model.CouponUsage, error) {
	query := `SELECT coupon_id, user_id, order_id, discount_amount, created_at
	          FROM coupon_usages WHERE order_id = $1`

	var usage model.CouponUsage
	err := tx.QueryRow(ctx, query, orderID).Scan(
		&usage.CouponID,
		&usage.UserID,
		&usage.OrderID,
		&usage.DiscountAmount,
		&usage.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon usage for order %s: %w", orderID, err)
	}
	return &usage, nil
}
