package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/internal/service"
	appvalidator "github.com/fairyhunter13/scalable-order-system/internal/validator"
)

// mockAuthService is a mock implementation of AuthServiceInterface.
type mockAuthService struct {
	registerFn func(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	loginFn    func(ctx context.Context, req *model.LoginRequest) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return nil, errors.New("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, req *model.LoginRequest) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return "", errors.New("not configured")
}

func setupAuthTestApp(mockSvc *mockAuthService) *fiber.App {
	app := fiber.New()
	h := NewAuthHandler(mockSvc, appvalidator.New())
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister_Success(t *testing.T) {
	mockSvc := &mockAuthService{
		registerFn: func(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
			return &model.User{ID: 42, Email: "user@example.com"}, nil
		},
	}
	app := setupAuthTestApp(mockSvc)

	body := `{"email": "user@example.com", "password": "hunter2hunter2"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result map[string]any
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, float64(42), result["id"])
	assert.Equal(t, "user@example.com", result["email"])
}

func TestRegister_EmailTaken(t *testing.T) {
	mockSvc := &mockAuthService{
		registerFn: func(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
			return nil, service.ErrEmailTaken
		},
	}
	app := setupAuthTestApp(mockSvc)

	body := `{"email": "user@example.com", "password": "hunter2hunter2"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "email already registered", result["error"], "Exact error message required")
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"missing email", `{"password": "hunter2hunter2"}`, "invalid request: email is required"},
		{"bad email", `{"email": "not-an-email", "password": "hunter2hunter2"}`, "invalid request: email is invalid"},
		{"missing password", `{"email": "user@example.com"}`, "invalid request: password is required"},
		{"short password", `{"email": "user@example.com", "password": "short"}`, "invalid request: password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupAuthTestApp(&mockAuthService{})

			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", tt.body))
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var result map[string]string
			err = json.NewDecoder(resp.Body).Decode(&result)
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, result["error"], "Exact error message required")
		})
	}
}

func TestRegister_MalformedJSON(t *testing.T) {
	app := setupAuthTestApp(&mockAuthService{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/register", `{not json}`))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid request body", result["error"], "Exact error message required")
}

func TestLogin_Success(t *testing.T) {
	var gotEmail string
	mockSvc := &mockAuthService{
		loginFn: func(ctx context.Context, req *model.LoginRequest) (string, error) {
			gotEmail = req.Email
			return "signed-token", nil
		},
	}
	app := setupAuthTestApp(mockSvc)

	body := `{"email": "user@example.com", "password": "hunter2hunter2"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "user@example.com", gotEmail)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "signed-token", result["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockSvc := &mockAuthService{
		loginFn: func(ctx context.Context, req *model.LoginRequest) (string, error) {
			return "", service.ErrInvalidCredentials
		},
	}
	app := setupAuthTestApp(mockSvc)

	body := `{"email": "user@example.com", "password": "wrong-password"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid credentials", result["error"], "Exact error message required")
}

func TestLogin_ServiceError(t *testing.T) {
	mockSvc := &mockAuthService{
		loginFn: func(ctx context.Context, req *model.LoginRequest) (string, error) {
			return "", errors.New("database connection failed")
		},
	}
	app := setupAuthTestApp(mockSvc)

	body := `{"email": "user@example.com", "password": "hunter2hunter2"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", body))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var result map[string]string
	err = json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "internal server error", result["error"], "Exact error message required")
}
