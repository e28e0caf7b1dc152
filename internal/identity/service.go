package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cryptobank/cryptobank/internal/ledger"
)

// dummyHash keeps authentication timing uniform when the username is
// unknown: the bcrypt comparison runs either way.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service manages the identity lifecycle.
type Service struct {
	repo       Repository
	settlement string
}

// NewService creates a new identity service. Every registered user gets an
// initial wallet denominated in the settlement currency.
func NewService(repo Repository, settlementCurrency string) *Service {
	return &Service{repo: repo, settlement: settlementCurrency}
}

// Register creates a user with a hashed secret and a zero-balance wallet in
// the settlement currency. Both exist afterwards, or neither does.
func (s *Service) Register(ctx context.Context, username, secret string) (User, ledger.Wallet, error) {
	if username == "" {
		return User{}, ledger.Wallet{}, fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	}
	if len(secret) < 4 {
		return User{}, ledger.Wallet{}, fmt.Errorf("%w: secret must be at least 4 characters", ErrInvalidRegistration)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	wallet := ledger.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   user.ID,
		Currency:  s.settlement,
		Balance:   0,
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, user, wallet); err != nil {
		return User{}, ledger.Wallet{}, err
	}

	return user, wallet, nil
}

// Authenticate verifies the secret against the stored hash. Unknown
// usernames and wrong secrets fail identically.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(secret)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}
