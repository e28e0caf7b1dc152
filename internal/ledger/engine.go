package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cryptobank/cryptobank/internal/rates"
)

// Engine validates and applies balance-affecting operations against the
// Store. All policy checks happen here, before any store mutation, so an
// invalid request never leaves partial side effects.
type Engine struct {
	store      Store
	quote      rates.Quote
	settlement string
}

// NewEngine builds the ledger engine around a store, a conversion quote
// function and the settlement currency code.
func NewEngine(store Store, quote rates.Quote, settlementCurrency string) *Engine {
	return &Engine{store: store, quote: quote, settlement: settlementCurrency}
}

// SettlementCurrency returns the currency wallets are denominated in.
func (e *Engine) SettlementCurrency() string {
	return e.settlement
}

// Deposit increases the caller's wallet for the currency by amount.
func (e *Engine) Deposit(ctx context.Context, userID string, amount int64, currency string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	w, err := e.store.WalletByOwner(ctx, userID, currency)
	if err != nil {
		return Entry{}, err
	}
	entry := e.newEntry(userID, amount, currency, KindDeposit, "")
	if err := e.store.Credit(ctx, w.ID, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Withdraw decreases the caller's wallet for the currency by amount.
func (e *Engine) Withdraw(ctx context.Context, userID string, amount int64, currency string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	w, err := e.store.WalletByOwner(ctx, userID, currency)
	if err != nil {
		return Entry{}, err
	}
	entry := e.newEntry(userID, amount, currency, KindWithdrawal, "")
	if err := e.store.Debit(ctx, w.ID, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Transfer debits the caller's wallet and credits the recipient wallet in
// one atomic unit. Transfers to the caller's own wallet are rejected, as
// are transfers across currencies.
func (e *Engine) Transfer(ctx context.Context, userID string, amount int64, currency, recipientWalletID string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	w, err := e.store.WalletByOwner(ctx, userID, currency)
	if err != nil {
		return Entry{}, err
	}
	recipient, err := e.store.WalletByID(ctx, recipientWalletID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return Entry{}, ErrRecipientNotFound
		}
		return Entry{}, err
	}
	if recipient.ID == w.ID {
		return Entry{}, ErrInvalidOperation
	}
	if recipient.Currency != w.Currency {
		return Entry{}, ErrInvalidOperation
	}
	entry := e.newEntry(userID, amount, currency, KindTransfer, recipient.ID)
	if err := e.store.Transfer(ctx, w.ID, recipient.ID, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Record applies a caller-supplied operation kind. Transfers require a
// recipient wallet id; unrecognized kinds fail with ErrInvalidOperation.
func (e *Engine) Record(ctx context.Context, userID string, amount int64, currency, kind, recipientWalletID string) (Entry, error) {
	switch kind {
	case KindDeposit:
		return e.Deposit(ctx, userID, amount, currency)
	case KindWithdrawal:
		return e.Withdraw(ctx, userID, amount, currency)
	case KindTransfer:
		return e.Transfer(ctx, userID, amount, currency, recipientWalletID)
	default:
		return Entry{}, ErrInvalidOperation
	}
}

// Conversion describes the outcome of an on-ramp conversion.
type Conversion struct {
	SourceAmount       int64
	SourceCurrency     string
	SettlementAmount   int64
	SettlementCurrency string
	Entry              Entry
}

// Convert quotes sourceAmount of sourceCurrency into the settlement currency
// and credits the caller's settlement wallet. The source amount is never
// held in any wallet; this models an external on-ramp.
func (e *Engine) Convert(ctx context.Context, userID string, sourceAmount int64, sourceCurrency string) (Conversion, error) {
	if sourceAmount <= 0 {
		return Conversion{}, ErrInvalidAmount
	}
	settlementAmount, err := e.quote(sourceAmount, sourceCurrency)
	if err != nil {
		if errors.Is(err, rates.ErrUnsupportedCurrency) {
			return Conversion{}, ErrInvalidOperation
		}
		return Conversion{}, ErrInvalidAmount
	}
	if settlementAmount <= 0 {
		// The source amount rounds down to nothing in settlement minor units.
		return Conversion{}, ErrInvalidAmount
	}

	w, err := e.store.WalletByOwner(ctx, userID, e.settlement)
	if err != nil {
		return Conversion{}, err
	}
	entry := e.newEntry(userID, settlementAmount, e.settlement, KindConversionDeposit, "")
	if err := e.store.Credit(ctx, w.ID, entry); err != nil {
		return Conversion{}, err
	}
	return Conversion{
		SourceAmount:       sourceAmount,
		SourceCurrency:     sourceCurrency,
		SettlementAmount:   settlementAmount,
		SettlementCurrency: e.settlement,
		Entry:              entry,
	}, nil
}

// Wallets lists the caller's wallets.
func (e *Engine) Wallets(ctx context.Context, userID string) ([]Wallet, error) {
	return e.store.WalletsByOwner(ctx, userID)
}

// Entries lists the caller's ledger entries.
func (e *Engine) Entries(ctx context.Context, userID string) ([]Entry, error) {
	return e.store.EntriesByUser(ctx, userID)
}

func (e *Engine) newEntry(userID string, amount int64, currency, kind, recipientWalletID string) Entry {
	return Entry{
		ID:                uuid.NewString(),
		UserID:            userID,
		Amount:            amount,
		Currency:          currency,
		Kind:              kind,
		RecipientWalletID: recipientWalletID,
		CreatedAt:         time.Now().UTC(),
	}
}
