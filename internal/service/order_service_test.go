package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

// mockLedger is a mock implementation of LedgerInterface.
type mockLedger struct {
	deductFn func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error
	creditFn func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error
}

func (m *mockLedger) DeductBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
	if m.deductFn != nil {
		return m.deductFn(ctx, tx, userID, amount)
	}
	return nil
}

func (m *mockLedger) CreditBalance(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
	if m.creditFn != nil {
		return m.creditFn(ctx, tx, userID, amount)
	}
	return nil
}

// mockOrderRepository is a mock implementation of OrderRepositoryInterface.
type mockOrderRepository struct {
	insertFn       func(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	getByIDFn      func(ctx context.Context, id string) (*model.Order, error)
	getForUpdateFn func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error)
	listByUserFn   func(ctx context.Context, userID int64) ([]*model.Order, error)
	updateStatusFn func(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error)
	deleteFn       func(ctx context.Context, id string) (bool, error)
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, order)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []*model.Order{}, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, from, to)
	}
	return true, nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

// mockProductRepository is a mock implementation of ProductRepositoryInterface.
type mockProductRepository struct {
	getByIDFn func(ctx context.Context, id int64) (*model.Product, error)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

// mockCouponValidator is a mock implementation of CouponValidatorInterface.
type mockCouponValidator struct {
	validateFn func(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error)
}

func (m *mockCouponValidator) Validate(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, code, userID, orderAmount)
	}
	return nil, ErrCouponNotFound
}

// mockNotifier is a mock implementation of NotifierInterface.
type mockNotifier struct {
	mu     sync.Mutex
	sent   []string
	sendFn func(ctx context.Context, userID int64, order *model.Order) error
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, userID int64, order *model.Order) error {
	m.mu.Lock()
	m.sent = append(m.sent, order.ID)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, userID, order)
	}
	return nil
}

// inlineTasks runs submitted tasks synchronously so tests can observe the
// notification side effects without a real worker pool.
type inlineTasks struct {
	accept bool
}

func (t *inlineTasks) Submit(name string, task func(context.Context) error) bool {
	if !t.accept {
		return false
	}
	_ = task(context.Background())
	return true
}

var testLimits = OrderLimits{MinPrice: 1_000, MaxPrice: 1_000_000_000}

func activeProduct() *model.Product {
	return &model.Product{
		ID:       10,
		Name:     "Concert Ticket",
		Options:  []string{"standard", "vip"},
		IsActive: true,
	}
}

func newOrderServiceForTest(
	pool TxBeginner,
	ledger LedgerInterface,
	orderRepo OrderRepositoryInterface,
	productRepo ProductRepositoryInterface,
	couponRepo CouponRepositoryInterface,
	usageRepo UsageRepositoryInterface,
	validator CouponValidatorInterface,
	notifier NotifierInterface,
	tasks TaskSubmitter,
) *OrderService {
	if pool == nil {
		pool = &mockTxBeginner{}
	}
	if ledger == nil {
		ledger = &mockLedger{}
	}
	if orderRepo == nil {
		orderRepo = &mockOrderRepository{}
	}
	if productRepo == nil {
		productRepo = &mockProductRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.Product, error) {
				return activeProduct(), nil
			},
		}
	}
	if couponRepo == nil {
		couponRepo = &mockCouponRepository{}
	}
	if usageRepo == nil {
		usageRepo = &mockUsageRepository{}
	}
	return NewOrderServiceWithTxBeginner(pool, ledger, orderRepo, productRepo,
		couponRepo, usageRepo, validator, notifier, tasks, testLimits)
}

func TestOrderService_Create_Success(t *testing.T) {
	var deducted int64
	ledger := &mockLedger{
		deductFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
			deducted = amount
			return nil
		},
	}
	var inserted *model.Order
	orderRepo := &mockOrderRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
			inserted = order
			return nil
		},
	}

	svc := newOrderServiceForTest(nil, ledger, orderRepo, nil, nil, nil, nil, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   2,
		TotalPrice: int64Ptr(50_000),
	})

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, int64(50_000), order.TotalPrice)
	assert.Equal(t, int64(50_000), deducted, "wallet should be debited the full price")
	assert.Equal(t, order.ID, inserted.ID)
	assert.Nil(t, order.CouponID)
}

func TestOrderService_Create_WithCoupon(t *testing.T) {
	var deducted int64
	ledger := &mockLedger{
		deductFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
			deducted = amount
			return nil
		},
	}
	validator := &mockCouponValidator{
		validateFn: func(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error) {
			return &model.CouponValidation{
				Coupon:         &model.Coupon{ID: 7, Code: "WELCOME10", Type: model.CouponTypePercentage, Value: 10},
				DiscountAmount: 100_000,
				FinalAmount:    900_000,
			}, nil
		},
	}
	var usage *model.CouponUsage
	usageRepo := &mockUsageRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, u *model.CouponUsage) error {
			usage = u
			return nil
		},
	}
	incremented := false
	couponRepo := &mockCouponRepository{
		incrementUsedCountFn: func(ctx context.Context, tx database.TxQuerier, id int64) error {
			incremented = true
			return nil
		},
	}

	svc := newOrderServiceForTest(nil, ledger, nil, nil, couponRepo, usageRepo, validator, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(1_000_000),
		CouponCode: "WELCOME10",
	})

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(900_000), order.TotalPrice, "order should settle at the discounted price")
	assert.Equal(t, int64(100_000), order.DiscountAmount)
	assert.Equal(t, int64(900_000), deducted, "wallet debit should be the discounted amount")
	require.NotNil(t, order.CouponID)
	assert.Equal(t, int64(7), *order.CouponID)
	require.NotNil(t, usage)
	assert.Equal(t, int64(7), usage.CouponID)
	assert.Equal(t, order.ID, usage.OrderID)
	assert.True(t, incremented, "used count should be incremented in the same transaction")
}

func TestOrderService_Create_InsufficientFunds_RollsBack(t *testing.T) {
	rollbackCalled := false
	committed := false
	tx := &mockTx{
		commitFn: func(ctx context.Context) error {
			committed = true
			return nil
		},
		rollbackFn: func(ctx context.Context) error {
			rollbackCalled = true
			return nil
		},
	}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	ledger := &mockLedger{
		deductFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
			return ErrInsufficientFunds
		},
	}
	orderRepo := &mockOrderRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
			t.Fatal("order must not be inserted when the debit fails")
			return nil
		},
	}

	svc := newOrderServiceForTest(pool, ledger, orderRepo, nil, nil, nil, nil, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, ErrInsufficientFunds), "error should be ErrInsufficientFunds")
	assert.True(t, rollbackCalled, "transaction should be rolled back")
	assert.False(t, committed)
}

func TestOrderService_Create_DuplicateUsage_RollsBackEverything(t *testing.T) {
	rollbackCalled := false
	tx := &mockTx{
		rollbackFn: func(ctx context.Context) error {
			rollbackCalled = true
			return nil
		},
	}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	validator := &mockCouponValidator{
		validateFn: func(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error) {
			// The advisory pre-check passed; the constraint catches it inside.
			return &model.CouponValidation{
				Coupon:         &model.Coupon{ID: 7, Code: "ONCE"},
				DiscountAmount: 500,
				FinalAmount:    orderAmount - 500,
			}, nil
		},
	}
	usageRepo := &mockUsageRepository{
		insertFn: func(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error {
			return ErrCouponAlreadyUsed
		},
	}

	svc := newOrderServiceForTest(pool, nil, nil, nil, nil, usageRepo, validator, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
		CouponCode: "ONCE",
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, ErrCouponAlreadyUsed), "error should be ErrCouponAlreadyUsed")
	assert.True(t, rollbackCalled, "debit and order row should be rolled back with the usage insert")
}

func TestOrderService_Create_CouponRejectedBeforeTx(t *testing.T) {
	beginCalled := false
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			beginCalled = true
			return &mockTx{}, nil
		},
	}
	validator := &mockCouponValidator{
		validateFn: func(ctx context.Context, code string, userID, orderAmount int64) (*model.CouponValidation, error) {
			return nil, ErrCouponIneligible
		},
	}

	svc := newOrderServiceForTest(pool, nil, nil, nil, nil, nil, validator, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
		CouponCode: "NOPE",
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, ErrCouponIneligible))
	assert.False(t, beginCalled, "ineligible coupons should be rejected before any transaction starts")
}

func TestOrderService_Create_InvalidInput(t *testing.T) {
	inactive := activeProduct()
	inactive.IsActive = false

	tests := []struct {
		name    string
		product *model.Product
		req     *model.CreateOrderRequest
		wantErr error
	}{
		{
			name:    "nil request",
			product: activeProduct(),
			req:     nil,
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "zero quantity",
			product: activeProduct(),
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "standard", Quantity: 0, TotalPrice: int64Ptr(50_000)},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "quantity above limit",
			product: activeProduct(),
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "standard", Quantity: 101, TotalPrice: int64Ptr(50_000)},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown product",
			product: nil,
			req:     &model.CreateOrderRequest{ProductID: 99, OptionName: "standard", Quantity: 1, TotalPrice: int64Ptr(50_000)},
			wantErr: ErrProductNotFound,
		},
		{
			name:    "inactive product",
			product: inactive,
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "standard", Quantity: 1, TotalPrice: int64Ptr(50_000)},
			wantErr: ErrProductNotFound,
		},
		{
			name:    "unknown option",
			product: activeProduct(),
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "deluxe", Quantity: 1, TotalPrice: int64Ptr(50_000)},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "price below floor",
			product: activeProduct(),
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "standard", Quantity: 1, TotalPrice: int64Ptr(999)},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "price above ceiling",
			product: activeProduct(),
			req:     &model.CreateOrderRequest{ProductID: 10, OptionName: "standard", Quantity: 1, TotalPrice: int64Ptr(1_000_000_001)},
			wantErr: ErrInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			productRepo := &mockProductRepository{
				getByIDFn: func(ctx context.Context, id int64) (*model.Product, error) {
					return tt.product, nil
				},
			}
			svc := newOrderServiceForTest(nil, nil, nil, productRepo, nil, nil, nil, nil, nil)

			order, err := svc.Create(context.Background(), 42, tt.req)

			require.Error(t, err)
			assert.Nil(t, order)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestOrderService_Create_SendsConfirmation(t *testing.T) {
	notifier := &mockNotifier{}
	tasks := &inlineTasks{accept: true}

	svc := newOrderServiceForTest(nil, nil, nil, nil, nil, nil, nil, notifier, tasks)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
	})

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, order.ID, notifier.sent[0])
}

func TestOrderService_Create_SucceedsWhenQueueFull(t *testing.T) {
	notifier := &mockNotifier{}
	tasks := &inlineTasks{accept: false}

	svc := newOrderServiceForTest(nil, nil, nil, nil, nil, nil, nil, notifier, tasks)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
	})

	require.NoError(t, err, "a dropped notification must not fail the order")
	require.NotNil(t, order)
	assert.Empty(t, notifier.sent)
}

func TestOrderService_Cancel_Success(t *testing.T) {
	couponID := int64(7)
	order := &model.Order{
		ID:         "order-1",
		UserID:     42,
		TotalPrice: 900_000,
		CouponID:   &couponID,
		Status:     model.OrderStatusPending,
	}
	orderRepo := &mockOrderRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
			return order, nil
		},
		updateStatusFn: func(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error) {
			assert.Equal(t, model.OrderStatusPending, from)
			assert.Equal(t, model.OrderStatusCancelled, to)
			return true, nil
		},
	}
	var credited int64
	ledger := &mockLedger{
		creditFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
			credited = amount
			return nil
		},
	}
	decremented := false
	couponRepo := &mockCouponRepository{
		decrementUsedCountFn: func(ctx context.Context, tx database.TxQuerier, id int64) error {
			decremented = true
			assert.Equal(t, int64(7), id)
			return nil
		},
	}

	svc := newOrderServiceForTest(nil, ledger, orderRepo, nil, couponRepo, nil, nil, nil, nil)
	err := svc.Cancel(context.Background(), 42, "order-1")

	require.NoError(t, err)
	assert.Equal(t, int64(900_000), credited, "the settled price should be credited back")
	assert.True(t, decremented, "coupon counter should be released")
}

func TestOrderService_Cancel_NotOwner(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
			return &model.Order{ID: "order-1", UserID: 99, Status: model.OrderStatusPending}, nil
		},
	}

	svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
	err := svc.Cancel(context.Background(), 42, "order-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderNotFound), "ownership failures should be indistinguishable from absence")
}

func TestOrderService_Cancel_NotPending(t *testing.T) {
	for _, status := range []model.OrderStatus{
		model.OrderStatusProcessing,
		model.OrderStatusCompleted,
		model.OrderStatusCancelled,
		model.OrderStatusRefunded,
		model.OrderStatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
					return &model.Order{ID: "order-1", UserID: 42, Status: status}, nil
				},
			}

			svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
			err := svc.Cancel(context.Background(), 42, "order-1")

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotCancellable), "error should be ErrNotCancellable")
		})
	}
}

func TestOrderService_Cancel_CreditFailure_RollsBack(t *testing.T) {
	rollbackCalled := false
	tx := &mockTx{
		rollbackFn: func(ctx context.Context) error {
			rollbackCalled = true
			return nil
		},
	}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	orderRepo := &mockOrderRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
			return &model.Order{ID: "order-1", UserID: 42, TotalPrice: 50_000, Status: model.OrderStatusPending}, nil
		},
	}
	ledger := &mockLedger{
		creditFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
			return errors.New("database update timeout")
		},
	}

	svc := newOrderServiceForTest(pool, ledger, orderRepo, nil, nil, nil, nil, nil, nil)
	err := svc.Cancel(context.Background(), 42, "order-1")

	require.Error(t, err)
	assert.True(t, rollbackCalled, "status change should be rolled back with the failed credit")
}

func TestOrderService_Refund_Success(t *testing.T) {
	for _, status := range []model.OrderStatus{model.OrderStatusCompleted, model.OrderStatusProcessing} {
		t.Run(string(status), func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
					return &model.Order{ID: "order-1", UserID: 42, TotalPrice: 900_000, Status: status}, nil
				},
				updateStatusFn: func(ctx context.Context, tx database.TxQuerier, id string, from, to model.OrderStatus) (bool, error) {
					assert.Equal(t, status, from)
					assert.Equal(t, model.OrderStatusRefunded, to)
					return true, nil
				},
			}
			var credited int64
			ledger := &mockLedger{
				creditFn: func(ctx context.Context, tx database.TxQuerier, userID, amount int64) error {
					credited = amount
					return nil
				},
			}

			svc := newOrderServiceForTest(nil, ledger, orderRepo, nil, nil, nil, nil, nil, nil)
			amount, err := svc.Refund(context.Background(), "order-1")

			require.NoError(t, err)
			assert.Equal(t, int64(900_000), amount)
			assert.Equal(t, int64(900_000), credited)
		})
	}
}

func TestOrderService_Refund_AlreadyRefunded(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
			return &model.Order{ID: "order-1", UserID: 42, Status: model.OrderStatusRefunded}, nil
		},
	}

	svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
	amount, err := svc.Refund(context.Background(), "order-1")

	require.Error(t, err)
	assert.Zero(t, amount)
	assert.True(t, errors.Is(err, ErrAlreadyRefunded), "second refund should be ErrAlreadyRefunded")
}

func TestOrderService_Refund_NotRefundable(t *testing.T) {
	for _, status := range []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusCancelled,
		model.OrderStatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
					return &model.Order{ID: "order-1", UserID: 42, Status: status}, nil
				},
			}

			svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
			_, err := svc.Refund(context.Background(), "order-1")

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotRefundable), "error should be ErrNotRefundable")
		})
	}
}

func TestOrderService_Refund_OrderNotFound(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
			return nil, nil
		},
	}

	svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
	_, err := svc.Refund(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestOrderService_Delete_OnlyTerminalWithoutEffects(t *testing.T) {
	tests := []struct {
		status  model.OrderStatus
		wantErr error
	}{
		{model.OrderStatusCancelled, nil},
		{model.OrderStatusFailed, nil},
		{model.OrderStatusPending, ErrNotDeletable},
		{model.OrderStatusProcessing, ErrNotDeletable},
		{model.OrderStatusCompleted, ErrNotDeletable},
		{model.OrderStatusRefunded, ErrNotDeletable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getByIDFn: func(ctx context.Context, id string) (*model.Order, error) {
					return &model.Order{ID: "order-1", UserID: 42, Status: tt.status}, nil
				},
			}

			svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
			err := svc.Delete(context.Background(), 42, "order-1")

			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestOrderService_Delete_RaceWithStatusChange(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: "order-1", UserID: 42, Status: model.OrderStatusCancelled}, nil
		},
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil // Guarded delete matched no row
		},
	}

	svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
	err := svc.Delete(context.Background(), 42, "order-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotDeletable))
}

func TestOrderService_UpdateStatus_ForwardTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current model.OrderStatus
		next    model.OrderStatus
		wantErr error
	}{
		{"pending to processing", model.OrderStatusPending, model.OrderStatusProcessing, nil},
		{"processing to completed", model.OrderStatusProcessing, model.OrderStatusCompleted, nil},
		{"pending to failed", model.OrderStatusPending, model.OrderStatusFailed, nil},
		{"pending to completed skips processing", model.OrderStatusPending, model.OrderStatusCompleted, ErrInvalidTransition},
		{"completed to processing goes backward", model.OrderStatusCompleted, model.OrderStatusProcessing, ErrInvalidTransition},
		{"refunded is terminal", model.OrderStatusRefunded, model.OrderStatusFailed, ErrInvalidTransition},
		{"cancel not allowed here", model.OrderStatusPending, model.OrderStatusCancelled, ErrInvalidTransition},
		{"refund not allowed here", model.OrderStatusCompleted, model.OrderStatusRefunded, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := &mockOrderRepository{
				getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.Order, error) {
					return &model.Order{ID: "order-1", UserID: 42, Status: tt.current}, nil
				},
			}

			svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
			err := svc.UpdateStatus(context.Background(), "order-1", tt.next)

			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOrderService_GetByID_OwnershipEnforced(t *testing.T) {
	orderRepo := &mockOrderRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: "order-1", UserID: 99, Status: model.OrderStatusPending}, nil
		},
	}

	svc := newOrderServiceForTest(nil, nil, orderRepo, nil, nil, nil, nil, nil, nil)
	order, err := svc.GetByID(context.Background(), 42, "order-1")

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestOrderService_ListByUser_Empty(t *testing.T) {
	svc := newOrderServiceForTest(nil, nil, &mockOrderRepository{}, nil, nil, nil, nil, nil, nil)

	orders, err := svc.ListByUser(context.Background(), 42)

	require.NoError(t, err)
	assert.NotNil(t, orders, "empty result should be an empty slice, not nil")
	assert.Len(t, orders, 0)
}

func TestOrderService_Create_BeginTxError(t *testing.T) {
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			return nil, errors.New("database connection pool exhausted")
		},
	}

	svc := newOrderServiceForTest(pool, nil, nil, nil, nil, nil, nil, nil, nil)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.Contains(t, err.Error(), "begin tx", "error should mention transaction begin")
}

func TestOrderService_Create_CommitError(t *testing.T) {
	commitErr := errors.New("database commit timeout")
	tx := &mockTx{
		commitFn: func(ctx context.Context) error { return commitErr },
	}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	notifier := &mockNotifier{}
	tasks := &inlineTasks{accept: true}

	svc := newOrderServiceForTest(pool, nil, nil, nil, nil, nil, nil, notifier, tasks)
	order, err := svc.Create(context.Background(), 42, &model.CreateOrderRequest{
		ProductID:  10,
		OptionName: "standard",
		Quantity:   1,
		TotalPrice: int64Ptr(50_000),
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, commitErr), "error should wrap commit error")
	assert.Empty(t, notifier.sent, "no confirmation should be sent for an uncommitted order")
}
