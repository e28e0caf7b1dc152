package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the authenticated ledger endpoints. The auth gate runs
// before every route here, so c.Locals("user_id") is always populated.
type Handler struct {
	engine *Engine
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type walletResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

type entryResponse struct {
	ID                string    `json:"id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Kind              string    `json:"kind"`
	RecipientWalletID string    `json:"recipient_wallet_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Wallets lists the caller's wallets with balances.
func (h *Handler) Wallets(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	wallets, err := h.engine.Wallets(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, walletResponse{ID: w.ID, Currency: w.Currency, Balance: w.Balance})
	}
	return c.Status(http.StatusOK).JSON(out)
}

type recordRequest struct {
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Kind              string `json:"kind"`
	RecipientWalletID string `json:"recipient_wallet_id"`
}

// Record applies a deposit, withdrawal or transfer for the caller.
func (h *Handler) Record(c *fiber.Ctx) error {
	var req recordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)
	entry, err := h.engine.Record(c.UserContext(), userID, req.Amount, req.Currency, req.Kind, req.RecipientWalletID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

// Entries lists the caller's ledger entries.
func (h *Handler) Entries(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	entries, err := h.engine.Entries(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(out)
}

type convertRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Convert credits the caller's settlement wallet with the quoted amount.
func (h *Handler) Convert(c *fiber.Ctx) error {
	var req convertRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)
	res, err := h.engine.Convert(c.UserContext(), userID, req.Amount, req.Currency)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"source_amount":       res.SourceAmount,
		"source_currency":     res.SourceCurrency,
		"settlement_amount":   res.SettlementAmount,
		"settlement_currency": res.SettlementCurrency,
		"entry_id":            res.Entry.ID,
	})
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:                e.ID,
		Amount:            e.Amount,
		Currency:          e.Currency,
		Kind:              e.Kind,
		RecipientWalletID: e.RecipientWalletID,
		Timestamp:         e.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrRecipientNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrContention):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
