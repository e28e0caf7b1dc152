package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWalletExists occurs when a wallet already exists for the owner and currency.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrWalletNotFound occurs when the caller has no wallet for the requested currency.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrRecipientNotFound occurs when a transfer names a recipient wallet that does not exist.
	ErrRecipientNotFound = errors.New("recipient wallet not found")

	// ErrInsufficientFunds occurs when a debit would leave the wallet balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount occurs when an operation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidOperation occurs on an unrecognized operation kind or a policy
	// violation such as a self-transfer or a cross-currency transfer.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrContention occurs when an operation keeps losing serialization conflicts
	// after the bounded internal retry. Callers may safely retry.
	ErrContention = errors.New("ledger contention, retry")
)

// Operation kinds recorded on ledger entries.
const (
	KindDeposit           = "deposit"
	KindWithdrawal        = "withdrawal"
	KindTransfer          = "transfer"
	KindConversionDeposit = "conversion_deposit"
)

// Wallet is a per-owner, per-currency balance record. Balances are integer
// minor units (cents) and never go negative.
type Wallet struct {
	ID        string
	OwnerID   string
	Currency  string
	Balance   int64
	CreatedAt time.Time
}

// Entry is the immutable record of one applied balance-affecting operation.
// RecipientWalletID is set only for transfers.
type Entry struct {
	ID                string
	UserID            string
	Amount            int64
	Currency          string
	Kind              string
	RecipientWalletID string
	CreatedAt         time.Time
}

// Store is the contract implemented by ledger backends. The three mutators
// each run as a single atomic unit: balance adjustment(s), the non-negative
// balance check, and the entry append either all take effect or none do.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	WalletByID(ctx context.Context, id string) (Wallet, error)
	WalletByOwner(ctx context.Context, ownerID, currency string) (Wallet, error)
	WalletsByOwner(ctx context.Context, ownerID string) ([]Wallet, error)
	EntriesByUser(ctx context.Context, userID string) ([]Entry, error)

	// Credit adds entry.Amount to the wallet balance and appends the entry.
	Credit(ctx context.Context, walletID string, entry Entry) error
	// Debit subtracts entry.Amount from the wallet balance and appends the
	// entry, failing with ErrInsufficientFunds if the balance would go negative.
	Debit(ctx context.Context, walletID string, entry Entry) error
	// Transfer debits the source wallet and credits the destination wallet by
	// entry.Amount and appends the entry, all within the same atomic unit.
	Transfer(ctx context.Context, fromWalletID, toWalletID string, entry Entry) error
}
