package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CredentialResolver maps a bearer token to an authenticated user id.
type CredentialResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// BearerAuth is the gate in front of every ledger endpoint: it resolves the
// Authorization bearer credential to a user id and stores it in request
// locals. No balance-mutating handler runs without passing through here.
func BearerAuth(resolver CredentialResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		userID, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired credential")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
