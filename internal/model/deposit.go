package model

import "time"

// Deposit gateways.
const (
	DepositGatewayFiat   = "FIAT"
	DepositGatewayCrypto = "CRYPTO"
)

// Deposit settlement states.
const (
	DepositStatusPending = "PENDING"
	DepositStatusPaid    = "PAID"
	DepositStatusFailed  = "FAILED"
)

// Deposit is a wallet top-up intent created against a payment gateway.
// Authority is the gateway's reference for the payment and is unique; the
// PENDING -> PAID transition is guarded so each authority credits the
// wallet at most once.
type Deposit struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Gateway   string    `json:"gateway"`
	Authority string    `json:"authority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateDepositRequest is the DTO for POST /api/wallet/deposits.
type CreateDepositRequest struct {
	Amount  *int64 `json:"amount" validate:"required,gte=1"`
	Gateway string `json:"gateway" validate:"required,oneof=FIAT CRYPTO"`
}

// DepositResponse is returned after a deposit intent is created.
type DepositResponse struct {
	DepositID  string `json:"deposit_id"`
	PaymentURL string `json:"payment_url"`
}
