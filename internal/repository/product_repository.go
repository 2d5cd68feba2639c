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

// ProductRepository provides data access for the product allow-list using pgx.
type ProductRepository struct {
	pool database.TxQuerier
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a new ProductRepository with a custom
// querier. This is primarily used for testing.
func NewProductRepositoryWithPool(pool database.TxQuerier) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by id.
// Returns nil, nil if the product is not found (service layer handles this).
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT id, name, options, is_active, created_at FROM products WHERE id = $1`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Options,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get product by id %d: %w", id, err)
	}
	return &p, nil
}
