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

// DepositRepository provides data access for wallet deposit intents using pgx.
type DepositRepository struct {
	pool database.TxQuerier
}

// NewDepositRepository creates a new DepositRepository with the given pool.
func NewDepositRepository(pool *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{pool: pool}
}

// NewDepositRepositoryWithPool creates a new DepositRepository with a custom
// querier. This is primarily used for testing.
func NewDepositRepositoryWithPool(pool database.TxQuerier) *DepositRepository {
	return &DepositRepository{pool: pool}
}

// Insert inserts a new deposit intent.
func (r *DepositRepository) Insert(ctx context.Context, deposit *model.Deposit) error {
	query := `INSERT INTO deposits (id, user_id, amount, gateway, authority, status)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		deposit.ID, deposit.UserID, deposit.Amount, deposit.Gateway,
		deposit.Authority, deposit.Status,
	).Scan(&deposit.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// GetByAuthority retrieves a deposit by its gateway authority.
// Returns nil, nil if not found (service layer handles this).
func (r *DepositRepository) GetByAuthority(ctx context.Context, authority string) (*model.Deposit, error) {
	query := `SELECT id, user_id, amount, gateway, authority, status, created_at
	          FROM deposits WHERE authority = $1`

	var d model.Deposit
	err := r.pool.QueryRow(ctx, query, authority).Scan(
		&d.ID,
		&d.UserID,
		&d.Amount,
		&d.Gateway,
		&d.Authority,
		&d.Status,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit by authority: %w", err)
	}
	return &d, nil
}

// MarkPaid transitions a deposit from PENDING to PAID. The PENDING guard in
// the WHERE clause makes the transition first-wins: a deposit authority can
// credit the wallet at most once even under concurrent verify callbacks.
// Returns false when the deposit is absent or already settled.
func (r *DepositRepository) MarkPaid(ctx context.Context, tx database.TxQuerier, id string) (bool, error) {
	query := `UPDATE deposits SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, model.DepositStatusPaid, id, model.DepositStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark deposit %s paid: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed transitions a deposit from PENDING to FAILED.
func (r *DepositRepository) MarkFailed(ctx context.Context, id string) error {
	query := `UPDATE deposits SET status = $1 WHERE id = $2 AND status = $3`

	_, err := r.pool.Exec(ctx, query, model.DepositStatusFailed, id, model.DepositStatusPending)
	if err != nil {
		return fmt.Errorf("mark deposit %s failed: %w", id, err)
	}
	return nil
}
