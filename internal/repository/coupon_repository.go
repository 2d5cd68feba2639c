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

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool database.TxQuerier
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom
// querier. This is primarily used for testing.
func NewCouponRepositoryWithPool(pool database.TxQuerier) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, code, type, value, min_amount, max_discount,
	usage_limit, used_count, valid_from, valid_until, is_active, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Type,
		&c.Value,
		&c.MinAmount,
		&c.MaxDiscount,
		&c.UsageLimit,
		&c.UsedCount,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon.
// Returns service.ErrCouponExists if a coupon with the same code already exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	query := `INSERT INTO coupons
	          (code, type, value, min_amount, max_discount, usage_limit, valid_from, valid_until, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		coupon.Code, coupon.Type, coupon.Value, coupon.MinAmount,
		coupon.MaxDiscount, coupon.UsageLimit, coupon.ValidFrom, coupon.ValidUntil,
		coupon.IsActive,
	).Scan(&coupon.ID)
	if err != nil {
		if database.UniqueViolation(err) {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its normalized code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// GetForUpdate retrieves a coupon by id with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes, serializing the
// used_count bookkeeping of concurrent orders.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %d: %w", id, err)
	}
	return coupon, nil
}

// IncrementUsedCount increments used_count by 1.
// Must be called within the order-creation transaction.
func (r *CouponRepository) IncrementUsedCount(ctx context.Context, tx database.TxQuerier, id int64) error {
	query := `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`

	_, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment used count for coupon %d: %w", id, err)
	}
	return nil
}

// DecrementUsedCount decrements used_count by 1, flooring at zero.
// Must be called within the cancel/refund compensation transaction.
func (r *CouponRepository) DecrementUsedCount(ctx context.Context, tx database.TxQuerier, id int64) error {
	query := `UPDATE coupons SET used_count = GREATEST(used_count - 1, 0) WHERE id = $1`

	_, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("decrement used count for coupon %d: %w", id, err)
	}
	return nil
}
