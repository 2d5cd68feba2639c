package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
)

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	Insert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenIssuerInterface signs session tokens.
type TokenIssuerInterface interface {
	Generate(userID int64, email string, isAdmin bool) (string, error)
}

// AuthService provides account registration and login.
type AuthService struct {
	users  UserRepositoryInterface
	tokens TokenIssuerInterface
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserRepositoryInterface, tokens TokenIssuerInterface) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates an account with a bcrypt password hash and a zero wallet.
// Returns ErrEmailTaken when the email is already registered.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed session token.
// Returns ErrInvalidCredentials for an unknown email or wrong password;
// the two cases are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (string, error) {
	if req == nil {
		return "", ErrInvalidRequest
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
