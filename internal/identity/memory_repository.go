package identity

import (
	"context"
	"sync"

	"github.com/cryptobank/cryptobank/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byName  map[string]User
	byID    map[string]string // id -> username
	wallets ledger.Store
}

// NewMemoryRepository builds an in-memory user store for tests and dev runs.
// The wallet store is needed so registration can provision the initial
// wallet together with the user.
func NewMemoryRepository(wallets ledger.Store) Repository {
	return &memoryRepository{
		byName:  make(map[string]User),
		byID:    make(map[string]string),
		wallets: wallets,
	}
}

func (r *memoryRepository) Create(ctx context.Context, user User, wallet ledger.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[user.Username]; exists {
		return ErrDuplicateIdentity
	}
	if err := r.wallets.CreateWallet(ctx, wallet); err != nil {
		return err
	}
	r.byName[user.Username] = user
	r.byID[user.ID] = user.Username
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byName[username]
	if !ok {
		return User{}, ErrUnknownIdentity
	}
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.byID[id]
	if !ok {
		return User{}, ErrUnknownIdentity
	}
	return r.byName[username], nil
}
