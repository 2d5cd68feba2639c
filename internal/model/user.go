package model

import "time"

// User represents an account with a wallet balance in smallest currency
// units. WalletBalance is mutated only through the ledger operations in the
// user repository, never by read-modify-write in application code.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	IsAdmin       bool      `json:"is_admin"`
	WalletBalance int64     `json:"wallet_balance"`
	CreatedAt     time.Time `json:"-"`
}

// RegisterRequest is the DTO for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the DTO for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// WalletResponse is the API response DTO for GET /api/wallet.
type WalletResponse struct {
	Balance int64 `json:"balance"`
}
