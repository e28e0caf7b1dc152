package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptobank/cryptobank/internal/identity"
)

// RegisterIdentityRoutes wires registration, which provisions the user's
// settlement-currency wallet in the same atomic unit.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, wallet, err := ids.Register(c.UserContext(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrDuplicateIdentity):
				return fiber.NewError(http.StatusConflict, err.Error())
			case errors.Is(err, identity.ErrInvalidRegistration):
				return fiber.NewError(http.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(http.StatusInternalServerError, err.Error())
			}
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("user_id", user.ID),
				slog.String("username", user.Username),
				slog.String("wallet_id", wallet.ID),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id":   user.ID,
			"username":  user.Username,
			"wallet_id": wallet.ID,
			"currency":  wallet.Currency,
		})
	})
}
