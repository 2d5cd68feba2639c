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

// UserRepository provides data access for users and the wallet ledger using pgx.
type UserRepository struct {
	pool database.TxQuerier
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom querier.
// This is primarily used for testing.
func NewUserRepositoryWithPool(pool database.TxQuerier) *UserRepository {
	return &UserRepository{pool: pool}
}

// Insert inserts a new user.
// Returns service.ErrEmailTaken if the email is already registered.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, password_hash, is_admin, wallet_balance)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.IsAdmin, user.WalletBalance,
	).Scan(&user.ID)
	if err != nil {
		if database.UniqueViolation(err) {
			return service.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, password_hash, is_admin, wallet_balance, created_at
	          FROM users WHERE id = $1`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.WalletBalance,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get user by id %d: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
// Returns nil, nil if the user is not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password_hash, is_admin, wallet_balance, created_at
	          FROM users WHERE email = $1`

	var user model.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.WalletBalance,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// DeductBalance is the wallet ledger's debit primitive: a conditional
// decrement that only applies when the balance covers the amount. The
// condition and the update are one statement, so concurrent debits against
// the same user serialize on the row and the balance can never go negative.
// Returns service.ErrInsufficientFunds when the balance does not cover amount,
// and service.ErrUserNotFound when the user does not exist.
func (r *UserRepository) DeductBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
	query := `UPDATE users SET wallet_balance = wallet_balance - $1
	          WHERE id = $2 AND wallet_balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("deduct balance for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing user from an uncovered balance.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user %d exists: %w", userID, err)
		}
		if !exists {
			return service.ErrUserNotFound
		}
		return service.ErrInsufficientFunds
	}
	return nil
}

// CreditBalance is the wallet ledger's credit primitive.
// Returns service.ErrUserNotFound when the user does not exist.
func (r *UserRepository) CreditBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
	query := `UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("credit balance for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}
