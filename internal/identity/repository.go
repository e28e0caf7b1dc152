package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptobank/cryptobank/internal/ledger"
)

// Repository persists users. Create provisions the user's initial wallet in
// the same atomic unit: either both records exist afterwards or neither does.
type Repository interface {
	Create(ctx context.Context, user User, wallet ledger.Wallet) error
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user and their initial wallet in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, user User, wallet ledger.Wallet) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO users (id, username, password_hash, created_at)
        VALUES ($1, $2, $3, $4)`, user.ID, user.Username, user.PasswordHash, user.CreatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallets (id, owner_id, currency, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, wallet.ID, wallet.OwnerID, wallet.Currency, wallet.Balance, wallet.CreatedAt.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindByUsername fetches a user by exact username match.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, password_hash, created_at
        FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, password_hash, created_at
        FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var createdAt time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUnknownIdentity
		}
		return User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
