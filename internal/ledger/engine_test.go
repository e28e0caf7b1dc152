package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cryptobank/cryptobank/internal/rates"
)

func newTestEngine(t *testing.T) (*Engine, Store) {
	t.Helper()
	store := NewInMemory()
	return NewEngine(store, rates.FixedUZS(12_700), "USDT"), store
}

func addWallet(t *testing.T, store Store, owner, currency string) Wallet {
	t.Helper()
	w := testWallet(uuid.NewString(), owner, currency)
	if err := store.CreateWallet(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func TestEngineDepositAndWithdraw(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")

	entry, err := engine.Deposit(ctx, "alice", 10_000, "USDT")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if entry.Kind != KindDeposit || entry.Amount != 10_000 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// Overdraw rejected, balance untouched.
	if _, err := engine.Withdraw(ctx, "alice", 15_000, "USDT"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	w, err := store.WalletByOwner(ctx, "alice", "USDT")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != 10_000 {
		t.Fatalf("expected balance 10000, got %d", w.Balance)
	}

	if _, err := engine.Withdraw(ctx, "alice", 4_000, "USDT"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	w, _ = store.WalletByOwner(ctx, "alice", "USDT")
	if w.Balance != 6_000 {
		t.Fatalf("expected balance 6000, got %d", w.Balance)
	}

	entries, err := engine.Entries(ctx, "alice")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestEngineDepositValidation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")

	if _, err := engine.Deposit(ctx, "alice", 0, "USDT"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Deposit(ctx, "alice", 100, "EUR"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}

	entries, _ := engine.Entries(ctx, "alice")
	if len(entries) != 0 {
		t.Fatalf("rejected operations recorded entries: %d", len(entries))
	}
}

func TestEngineTransfer(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")
	bob := addWallet(t, store, "bob", "USDT")

	if _, err := engine.Deposit(ctx, "alice", 10_000, "USDT"); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	entry, err := engine.Transfer(ctx, "alice", 2_000, "USDT", bob.ID)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if entry.Kind != KindTransfer || entry.RecipientWalletID != bob.ID {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	from, _ := store.WalletByOwner(ctx, "alice", "USDT")
	to, _ := store.WalletByOwner(ctx, "bob", "USDT")
	if from.Balance != 8_000 || to.Balance != 2_000 {
		t.Fatalf("unexpected balances: from=%d to=%d", from.Balance, to.Balance)
	}

	// One entry from the sender's perspective; none for the recipient.
	bobEntries, _ := engine.Entries(ctx, "bob")
	if len(bobEntries) != 0 {
		t.Fatalf("expected no recipient entries, got %d", len(bobEntries))
	}
}

func TestEngineTransferSelfRejected(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	alice := addWallet(t, store, "alice", "USDT")
	engine.Deposit(ctx, "alice", 5_000, "USDT")

	if _, err := engine.Transfer(ctx, "alice", 1_000, "USDT", alice.ID); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	w, _ := store.WalletByOwner(ctx, "alice", "USDT")
	if w.Balance != 5_000 {
		t.Fatalf("self-transfer touched balance: %d", w.Balance)
	}
}

func TestEngineTransferRecipientNotFound(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")
	engine.Deposit(ctx, "alice", 5_000, "USDT")

	if _, err := engine.Transfer(ctx, "alice", 1_000, "USDT", uuid.NewString()); !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
}

func TestEngineTransferCurrencyMismatch(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")
	other := addWallet(t, store, "bob", "UZS")
	engine.Deposit(ctx, "alice", 5_000, "USDT")

	if _, err := engine.Transfer(ctx, "alice", 1_000, "USDT", other.ID); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestEngineRecordUnknownKind(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")

	if _, err := engine.Record(ctx, "alice", 100, "USDT", "loan", ""); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestEngineConvertFixedRate(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")

	// 12,700.00 UZS at 12,700 UZS/USDT credits exactly 1.00 USDT.
	res, err := engine.Convert(ctx, "alice", 1_270_000, "UZS")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.SettlementAmount != 100 || res.SettlementCurrency != "USDT" {
		t.Fatalf("unexpected conversion: %+v", res)
	}
	if res.Entry.Kind != KindConversionDeposit || res.Entry.Amount != 100 {
		t.Fatalf("unexpected entry: %+v", res.Entry)
	}

	w, _ := store.WalletByOwner(ctx, "alice", "USDT")
	if w.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", w.Balance)
	}
	entries, _ := engine.Entries(ctx, "alice")
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
}

func TestEngineConvertRejections(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	addWallet(t, store, "alice", "USDT")

	if _, err := engine.Convert(ctx, "alice", -1, "UZS"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := engine.Convert(ctx, "alice", 1_000, "EUR"); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for unsupported currency, got %v", err)
	}
	// Rounds down to zero settlement units.
	if _, err := engine.Convert(ctx, "alice", 12_699, "UZS"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for dust, got %v", err)
	}

	w, _ := store.WalletByOwner(ctx, "alice", "USDT")
	if w.Balance != 0 {
		t.Fatalf("rejected conversions touched balance: %d", w.Balance)
	}
}
