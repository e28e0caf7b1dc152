package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	txMaxAttempts  = 3
	txRetryBackoff = 10 * time.Millisecond
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. Every
// mutator runs in a serializable transaction; serialization conflicts are
// retried a bounded number of times before surfacing ErrContention.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet record.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, currency, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, w.ID, w.OwnerID, w.Currency, w.Balance, w.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrWalletExists
	}
	return err
}

// WalletByID fetches a wallet by identifier.
func (s *PostgresStore) WalletByID(ctx context.Context, id string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, currency, balance, created_at
        FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

// WalletByOwner fetches the owner's wallet for the given currency.
func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID, currency string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, currency, balance, created_at
        FROM wallets WHERE owner_id = $1 AND currency = $2`, ownerID, currency)
	return scanWallet(row)
}

// WalletsByOwner lists all wallets belonging to the owner.
func (s *PostgresStore) WalletsByOwner(ctx context.Context, ownerID string) ([]Wallet, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, currency, balance, created_at
        FROM wallets WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		var w Wallet
		var createdAt time.Time
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &createdAt); err != nil {
			return nil, err
		}
		w.CreatedAt = createdAt.UTC()
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// EntriesByUser lists all ledger entries recorded for the acting user.
func (s *PostgresStore) EntriesByUser(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, amount, currency, kind, recipient_wallet_id, created_at
        FROM entries WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recipient *string
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Kind, &recipient, &createdAt); err != nil {
			return nil, err
		}
		if recipient != nil {
			e.RecipientWalletID = *recipient
		}
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Credit adds the entry amount to the wallet balance and appends the entry.
func (s *PostgresStore) Credit(ctx context.Context, walletID string, entry Entry) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockedBalance(ctx, tx, walletID, ErrWalletNotFound); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2`,
			entry.Amount, walletID); err != nil {
			return err
		}
		return insertEntry(ctx, tx, entry)
	})
}

// Debit subtracts the entry amount from the wallet balance and appends the entry.
func (s *PostgresStore) Debit(ctx context.Context, walletID string, entry Entry) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		balance, err := lockedBalance(ctx, tx, walletID, ErrWalletNotFound)
		if err != nil {
			return err
		}
		if balance < entry.Amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1 WHERE id = $2`,
			entry.Amount, walletID); err != nil {
			return err
		}
		return insertEntry(ctx, tx, entry)
	})
}

// Transfer moves the entry amount between two wallets and appends the entry,
// all in one transaction. Row locks are taken in ascending wallet-ID order
// to avoid deadlock between opposite-direction transfers.
func (s *PostgresStore) Transfer(ctx context.Context, fromWalletID, toWalletID string, entry Entry) error {
	if fromWalletID == toWalletID {
		return ErrInvalidOperation
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		first, second := fromWalletID, toWalletID
		firstErr, secondErr := ErrWalletNotFound, ErrRecipientNotFound
		if toWalletID < fromWalletID {
			first, second = toWalletID, fromWalletID
			firstErr, secondErr = ErrRecipientNotFound, ErrWalletNotFound
		}
		firstBalance, err := lockedBalance(ctx, tx, first, firstErr)
		if err != nil {
			return err
		}
		secondBalance, err := lockedBalance(ctx, tx, second, secondErr)
		if err != nil {
			return err
		}

		fromBalance := firstBalance
		if first != fromWalletID {
			fromBalance = secondBalance
		}
		if fromBalance < entry.Amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1 WHERE id = $2`,
			entry.Amount, fromWalletID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE id = $2`,
			entry.Amount, toWalletID); err != nil {
			return err
		}
		return insertEntry(ctx, tx, entry)
	})
}

// inTx runs fn in a serializable transaction with a bounded retry on
// serialization conflicts, then reports ErrContention.
func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	backoff := txRetryBackoff
	for attempt := 1; ; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		if attempt >= txMaxAttempts {
			return ErrContention
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockedBalance(ctx context.Context, tx pgx.Tx, walletID string, missing error) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, missing
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, entry Entry) error {
	var recipient *string
	if entry.RecipientWalletID != "" {
		recipient = &entry.RecipientWalletID
	}
	_, err := tx.Exec(ctx, `INSERT INTO entries (id, user_id, amount, currency, kind, recipient_wallet_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Amount, entry.Currency, entry.Kind, recipient, entry.CreatedAt.UTC())
	return err
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var createdAt time.Time
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
