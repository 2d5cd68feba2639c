package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// OrderRepository provides data access for orders using pgx.
type OrderRepository struct {
	pool database.TxQuerier
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom
// querier. This is primarily used for testing.
func NewOrderRepositoryWithPool(pool database.TxQuerier) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, product_id, option_name, quantity,
	total_price, discount_amount, coupon_id, status, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.ProductID,
		&o.OptionName,
		&o.Quantity,
		&o.TotalPrice,
		&o.DiscountAmount,
		&o.CouponID,
		&o.Status,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Insert inserts a new order within a transaction.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	query := `INSERT INTO orders
	          (id, user_id, product_id, option_name, quantity, total_price, discount_amount, coupon_id, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	err := tx.QueryRow(ctx, query,
		order.ID, order.UserID, order.ProductID, order.OptionName, order.Quantity,
		order.TotalPrice, order.DiscountAmount, order.CouponID, order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by id.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get order by id %s: %w", id, err)
	}
	return order, nil
}

// GetForUpdate retrieves an order with a row lock (SELECT FOR UPDATE).
// Compensation reads the order under this lock so concurrent cancel/refund
// attempts serialize and only one of them reverses the financial effects.
// Returns nil, nil if the order doesn't exist.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for update %s: %w", id, err)
	}
	return order, nil
}

// ListByUser retrieves all orders of a user, newest first.
// On success, returns an empty slice (not nil) when no orders exist.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	orders := []*model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// UpdateStatus transitions an order from one status to another. The current
// status is part of the WHERE clause, so a lost race surfaces as zero rows
// affected rather than an overwrite.
// Returns false when the order is absent or no longer in the from status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update order %s status %s -> %s: %w", id, from, to, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an order that is in a status without financial effects to
// reverse. Returns false when the order is absent or not in such a status.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM orders WHERE id = $1 AND status IN ($2, $3)`

	tag, err := r.pool.Exec(ctx, query, id, model.OrderStatusCancelled, model.OrderStatusFailed)
	if err != nil {
		return false, fmt.Errorf("delete order %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
