package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptobank/cryptobank/internal/ledger"
)

// RegisterLedgerRoutes wires the authenticated wallet and ledger endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/wallets", h.Wallets)
	r.Post("/transactions", h.Record)
	r.Get("/transactions", h.Entries)
	r.Post("/convert", h.Convert)
}
