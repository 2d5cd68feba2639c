package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// PaymentIntent is the gateway's handle for a created payment.
type PaymentIntent struct {
	Authority  string
	PaymentURL string
}

// PaymentGatewayInterface is the outbound contract to a payment processor.
// Implementations retry transient failures internally; a returned error is
// final for the attempt.
type PaymentGatewayInterface interface {
	CreatePayment(ctx context.Context, amount int64, description string) (*PaymentIntent, error)
	// VerifyPayment returns nil when the payment settled, ErrPaymentFailed
	// when the processor reports a final non-successful status, and an
	// ErrUpstream-wrapped error for transport failures.
	VerifyPayment(ctx context.Context, authority string, amount int64) error
}

// UserReaderInterface defines user lookups needed by the wallet service.
type UserReaderInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// DepositRepositoryInterface defines the interface for deposit data access.
type DepositRepositoryInterface interface {
	Insert(ctx context.Context, deposit *model.Deposit) error
	GetByAuthority(ctx context.Context, authority string) (*model.Deposit, error)
	MarkPaid(ctx context.Context, tx database.TxQuerier, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
}

// WalletService provides wallet balance reads and gateway-backed top-ups.
// Crediting is exactly-once per deposit authority: the guarded
// PENDING -> PAID transition and the wallet credit share one transaction.
type WalletService struct {
	pool        TxBeginner
	ledger      LedgerInterface
	users       UserReaderInterface
	depositRepo DepositRepositoryInterface
	gateways    map[string]PaymentGatewayInterface
}

// NewWalletService creates a new WalletService. The gateways map is keyed by
// model.DepositGatewayFiat / model.DepositGatewayCrypto.
func NewWalletService(
	pool *pgxpool.Pool,
	ledger LedgerInterface,
	users UserReaderInterface,
	depositRepo DepositRepositoryInterface,
	gateways map[string]PaymentGatewayInterface,
) *WalletService {
	return NewWalletServiceWithTxBeginner(pool, ledger, users, depositRepo, gateways)
}

// NewWalletServiceWithTxBeginner creates a WalletService with a custom
// TxBeginner. Primarily used for testing.
func NewWalletServiceWithTxBeginner(
	pool TxBeginner,
	ledger LedgerInterface,
	users UserReaderInterface,
	depositRepo DepositRepositoryInterface,
	gateways map[string]PaymentGatewayInterface,
) *WalletService {
	return &WalletService{
		pool:        pool,
		ledger:      ledger,
		users:       users,
		depositRepo: depositRepo,
		gateways:    gateways,
	}
}

// Balance returns the user's wallet balance.
// Returns ErrUserNotFound when the user doesn't exist.
func (s *WalletService) Balance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	return user.WalletBalance, nil
}

// Deposit creates a payment with the selected gateway and persists a PENDING
// deposit intent carrying the gateway's authority.
func (s *WalletService) Deposit(ctx context.Context, userID int64, req *model.CreateDepositRequest) (*model.DepositResponse, error) {
	if req == nil || req.Amount == nil {
		return nil, ErrInvalidRequest
	}
	gw, ok := s.gateways[req.Gateway]
	if !ok {
		return nil, ErrInvalidRequest
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	intent, err := gw.CreatePayment(ctx, *req.Amount, fmt.Sprintf("wallet top-up for %s", user.Email))
	if err != nil {
		return nil, err
	}

	deposit := &model.Deposit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    *req.Amount,
		Gateway:   req.Gateway,
		Authority: intent.Authority,
		Status:    model.DepositStatusPending,
	}
	if err := s.depositRepo.Insert(ctx, deposit); err != nil {
		return nil, fmt.Errorf("insert deposit: %w", err)
	}

	log.Info().
		Str("deposit_id", deposit.ID).
		Int64("user_id", userID).
		Int64("amount", deposit.Amount).
		Str("gateway", deposit.Gateway).
		Msg("deposit intent created")

	return &model.DepositResponse{
		DepositID:  deposit.ID,
		PaymentURL: intent.PaymentURL,
	}, nil
}

// VerifyDeposit settles a deposit after the gateway callback. The gateway
// verification happens outside the transaction; the credit and the guarded
// status transition happen inside it, so an authority credits the wallet at
// most once no matter how many callbacks race.
//
// Returns:
//   - ErrDepositNotFound for an unknown authority
//   - ErrDepositSettled when the deposit already left PENDING
//   - ErrPaymentFailed when the gateway reports a final failure (deposit marked FAILED)
func (s *WalletService) VerifyDeposit(ctx context.Context, authority string) (*model.Deposit, error) {
	deposit, err := s.depositRepo.GetByAuthority(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	if deposit == nil {
		return nil, ErrDepositNotFound
	}
	if deposit.Status != model.DepositStatusPending {
		return nil, ErrDepositSettled
	}

	gw, ok := s.gateways[deposit.Gateway]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for %s", deposit.Gateway)
	}

	if err := gw.VerifyPayment(ctx, authority, deposit.Amount); err != nil {
		if errors.Is(err, ErrPaymentFailed) {
			if markErr := s.depositRepo.MarkFailed(ctx, deposit.ID); markErr != nil {
				log.Error().Err(markErr).Str("deposit_id", deposit.ID).Msg("failed to mark deposit failed")
			}
		}
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	paid, err := s.depositRepo.MarkPaid(ctx, tx, deposit.ID)
	if err != nil {
		return nil, fmt.Errorf("mark deposit paid: %w", err)
	}
	if !paid {
		// A concurrent verify won the race; the wallet was already credited.
		return nil, ErrDepositSettled
	}

	if err := s.ledger.CreditBalance(ctx, tx, deposit.UserID, deposit.Amount); err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit deposit: %w", err)
	}

	deposit.Status = model.DepositStatusPaid
	log.Info().
		Str("deposit_id", deposit.ID).
		Int64("user_id", deposit.UserID).
		Int64("amount", deposit.Amount).
		Msg("deposit verified and credited")
	return deposit, nil
}
