package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/scalable-order-system/internal/auth"
)

// Locals keys set by RequireAuth.
const (
	localUserID  = "user_id"
	localIsAdmin = "is_admin"
)

// TokenValidator validates session tokens.
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// RequireAuth validates the bearer token and stores the caller's identity in
// the request locals.
func RequireAuth(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		claims, err := tokens.Validate(strings.TrimPrefix(header, prefix))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localIsAdmin, claims.IsAdmin)
		return c.Next()
	}
}

// RequireAdmin gates a route to callers whose token carries the admin claim.
// Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals(localIsAdmin).(bool)
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller's user id, or 0 when RequireAuth
// did not run.
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localUserID).(int64)
	return id
}
