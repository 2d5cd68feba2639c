package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// maxOrderQuantity bounds the quantity of a single order.
const maxOrderQuantity = 100

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerInterface defines the wallet ledger primitives. Both operations are
// conditional single-statement updates executed inside a transaction.
type LedgerInterface interface {
	DeductBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error
	CreditBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error
}

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProductRepositoryInterface defines the interface for product lookups.
type ProductRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// CouponValidatorInterface validates coupon eligibility and computes discounts.
type CouponValidatorInterface interface {
	Validate(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error)
}

// NotifierInterface sends order lifecycle notifications.
type NotifierInterface interface {
	SendOrderConfirmation(ctx context.Context, userID int64, order *model.Order) error
}

// TaskSubmitter queues detached background work whose failure never reaches
// the submitting caller.
type TaskSubmitter interface {
	Submit(name string, task func(context.Context) error) bool
}

// OrderLimits bounds the price a single order may settle at, in smallest
// currency units.
type OrderLimits struct {
	MinPrice int64
	MaxPrice int64
}

// OrderService orchestrates order creation and its compensating operations.
// Every financial mutation happens inside a single pgx transaction: wallet
// deduction, order row, coupon usage row, and coupon counter either all
// commit or all roll back.
type OrderService struct {
	pool        TxBeginner
	ledger      LedgerInterface
	orderRepo   OrderRepositoryInterface
	productRepo ProductRepositoryInterface
	couponRepo  CouponRepositoryInterface
	usageRepo   UsageRepositoryInterface
	validator   CouponValidatorInterface
	notifier    NotifierInterface
	tasks       TaskSubmitter
	limits      OrderLimits
}

// NewOrderService creates a new OrderService with the given pool and
// collaborators.
func NewOrderService(
	pool *pgxpool.Pool,
	ledger LedgerInterface,
	orderRepo OrderRepositoryInterface,
	productRepo ProductRepositoryInterface,
	couponRepo CouponRepositoryInterface,
	usageRepo UsageRepositoryInterface,
	validator CouponValidatorInterface,
	notifier NotifierInterface,
	tasks TaskSubmitter,
	limits OrderLimits,
) *OrderService {
	return NewOrderServiceWithTxBeginner(pool, ledger, orderRepo, productRepo,
		couponRepo, usageRepo, validator, notifier, tasks, limits)
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom
// TxBeginner. Primarily used for testing.
func NewOrderServiceWithTxBeginner(
	pool TxBeginner,
	ledger LedgerInterface,
	orderRepo OrderRepositoryInterface,
	productRepo ProductRepositoryInterface,
	couponRepo CouponRepositoryInterface,
	usageRepo UsageRepositoryInterface,
	validator CouponValidatorInterface,
	notifier NotifierInterface,
	tasks TaskSubmitter,
	limits OrderLimits,
) *OrderService {
	return &OrderService{
		pool:        pool,
		ledger:      ledger,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		usageRepo:   usageRepo,
		validator:   validator,
		notifier:    notifier,
		tasks:       tasks,
		limits:      limits,
	}
}

// Create places an order for userID. Static validation and the coupon
// pre-check run before the transaction and leave no state behind on failure.
// The pre-check is advisory: a concurrent duplicate redemption that slips
// past it is caught by the usage row's uniqueness constraint inside the
// transaction and rolls the whole unit back.
//
// Returns:
//   - ErrProductNotFound when the product is absent or inactive
//   - ErrInvalidRequest for out-of-range quantity, option, or price
//   - ErrCouponNotFound / ErrCouponIneligible / ErrCouponAlreadyUsed from validation
//   - ErrUserNotFound when the user doesn't exist
//   - ErrInsufficientFunds when the wallet cannot cover the final price
func (s *OrderService) Create(ctx context.Context, userID int64, req *model.CreateOrderRequest) (*model.Order, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.TotalPrice == nil {
		return nil, ErrInvalidRequest
	}
	if req.Quantity < 1 || req.Quantity > maxOrderQuantity {
		return nil, ErrInvalidRequest
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil || !product.IsActive {
		return nil, ErrProductNotFound
	}
	if !product.HasOption(req.OptionName) {
		return nil, ErrInvalidRequest
	}

	price := *req.TotalPrice
	if price < s.limits.MinPrice || price > s.limits.MaxPrice {
		return nil, ErrInvalidRequest
	}

	// Coupon pre-validation, outside the atomic unit.
	var discount int64
	var couponID *int64
	if req.CouponCode != "" {
		validation, err := s.validator.Validate(ctx, req.CouponCode, userID, price)
		if err != nil {
			return nil, err
		}
		discount = validation.DiscountAmount
		price = validation.FinalAmount
		couponID = &validation.Coupon.ID
	}

	// Final bound on the price actually settled.
	if price < s.limits.MinPrice || price > s.limits.MaxPrice {
		return nil, ErrInvalidRequest
	}

	order := &model.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProductID:      req.ProductID,
		OptionName:     req.OptionName,
		Quantity:       req.Quantity,
		TotalPrice:     price,
		DiscountAmount: discount,
		CouponID:       couponID,
		Status:         model.OrderStatusPending,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Debit the wallet. The conditional update aborts the whole unit on
	//    an uncovered balance; nothing below it ever becomes visible.
	if err := s.ledger.DeductBalance(ctx, tx, userID, price); err != nil {
		return nil, err
	}

	// 2. Create the order row.
	if err := s.orderRepo.Insert(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// 3. Record the redemption and bump the counter.
	if couponID != nil {
		usage := &model.CouponUsage{
			CouponID:       *couponID,
			UserID:         userID,
			OrderID:        order.ID,
			DiscountAmount: discount,
		}
		if err := s.usageRepo.Insert(ctx, tx, usage); err != nil {
			return nil, err
		}
		if err := s.couponRepo.IncrementUsedCount(ctx, tx, *couponID); err != nil {
			return nil, fmt.Errorf("increment used count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	s.submitConfirmation(order)
	return order, nil
}

// submitConfirmation queues the order-confirmation notification on the
// detached executor. Failure to send, or a full queue, never affects the
// committed order.
func (s *OrderService) submitConfirmation(order *model.Order) {
	if s.notifier == nil || s.tasks == nil {
		return
	}
	o := *order
	accepted := s.tasks.Submit("order_confirmation", func(ctx context.Context) error {
		return s.notifier.SendOrderConfirmation(ctx, o.UserID, &o)
	})
	if !accepted {
		log.Warn().Str("order_id", order.ID).Msg("confirmation task dropped, executor queue full")
	}
}

// Cancel reverses a PENDING order in one transaction: status to CANCELLED,
// wallet credited with the order's total price, coupon counter decremented
// if a coupon was redeemed.
// Returns ErrOrderNotFound when absent or not owned by userID, and
// ErrNotCancellable when the order left PENDING.
func (s *OrderService) Cancel(ctx context.Context, userID int64, orderID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("get order for update: %w", err)
	}
	if order == nil || order.UserID != userID {
		return ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPending {
		return ErrNotCancellable
	}

	if err := s.compensate(ctx, tx, order, model.OrderStatusCancelled); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Refund reverses a COMPLETED or PROCESSING order and returns the credited
// amount. Returns ErrAlreadyRefunded when the order was already refunded,
// ErrNotRefundable for any other state, ErrOrderNotFound when absent.
func (s *OrderService) Refund(ctx context.Context, orderID string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return 0, fmt.Errorf("get order for update: %w", err)
	}
	if order == nil {
		return 0, ErrOrderNotFound
	}
	switch order.Status {
	case model.OrderStatusRefunded:
		return 0, ErrAlreadyRefunded
	case model.OrderStatusCompleted, model.OrderStatusProcessing:
		// refundable
	default:
		return 0, ErrNotRefundable
	}

	if err := s.compensate(ctx, tx, order, model.OrderStatusRefunded); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return order.TotalPrice, nil
}

// compensate applies the reversal shared by cancel and refund inside the
// caller's transaction: terminal status, wallet credit, coupon counter
// decrement. The order row stays locked from GetForUpdate, so the reversal
// applies at most once per order.
func (s *OrderService) compensate(ctx context.Context, tx pgx.Tx, order *model.Order, terminal model.OrderStatus) error {
	moved, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, order.Status, terminal)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if !moved {
		return ErrInvalidTransition
	}

	if err := s.ledger.CreditBalance(ctx, tx, order.UserID, order.TotalPrice); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}

	if order.CouponID != nil {
		if err := s.couponRepo.DecrementUsedCount(ctx, tx, *order.CouponID); err != nil {
			return fmt.Errorf("decrement used count: %w", err)
		}
	}
	return nil
}

// Delete removes an order whose financial effects are already reversed or
// never applied (CANCELLED or FAILED only).
// Returns ErrOrderNotFound when absent or not owned, ErrNotDeletable when
// the status still carries financial effects.
func (s *OrderService) Delete(ctx context.Context, userID int64, orderID string) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return ErrOrderNotFound
	}
	if order.Status != model.OrderStatusCancelled && order.Status != model.OrderStatusFailed {
		return ErrNotDeletable
	}

	deleted, err := s.orderRepo.Delete(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !deleted {
		// Status changed between the read and the guarded delete.
		return ErrNotDeletable
	}
	return nil
}

// UpdateStatus applies an admin-driven forward transition
// (PENDING -> PROCESSING -> COMPLETED, non-terminal -> FAILED). Cancel and
// refund have their own compensating paths and are rejected here.
// Returns ErrInvalidTransition when the state machine forbids the move.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next model.OrderStatus) error {
	switch next {
	case model.OrderStatusProcessing, model.OrderStatusCompleted, model.OrderStatusFailed:
		// allowed here
	default:
		return ErrInvalidTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("get order for update: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if !order.Status.CanTransition(next) {
		return ErrInvalidTransition
	}

	moved, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, order.Status, next)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if !moved {
		return ErrInvalidTransition
	}
	return tx.Commit(ctx)
}

// GetByID retrieves an order owned by userID.
// Returns ErrOrderNotFound when absent or owned by someone else.
func (s *OrderService) GetByID(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListByUser retrieves all orders of userID, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
