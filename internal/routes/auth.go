package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptobank/cryptobank/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	r.Group("/auth").Post("/login", h.Login)
}
