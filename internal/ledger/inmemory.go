package ledger

import (
	"context"
	"sync"
)

type memWallet struct {
	mu sync.Mutex
	w  Wallet
}

type inMemoryStore struct {
	mu      sync.RWMutex // guards the maps, not the balances
	wallets map[string]*memWallet
	byOwner map[string]map[string]string // ownerID -> currency -> walletID

	entryMu sync.Mutex
	entries []Entry
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit
// tests and for running the service without Postgres. Each wallet carries
// its own mutex, so operations on disjoint wallets run in parallel while
// operations on the same wallet serialize.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets: make(map[string]*memWallet),
		byOwner: make(map[string]map[string]string),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return ErrWalletExists
	}
	if _, exists := s.byOwner[w.OwnerID][w.Currency]; exists {
		return ErrWalletExists
	}
	s.wallets[w.ID] = &memWallet{w: w}
	if s.byOwner[w.OwnerID] == nil {
		s.byOwner[w.OwnerID] = make(map[string]string)
	}
	s.byOwner[w.OwnerID][w.Currency] = w.ID
	return nil
}

func (s *inMemoryStore) WalletByID(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	mw, ok := s.wallets[id]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w, nil
}

func (s *inMemoryStore) WalletByOwner(ctx context.Context, ownerID, currency string) (Wallet, error) {
	s.mu.RLock()
	id, ok := s.byOwner[ownerID][currency]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.WalletByID(ctx, id)
}

func (s *inMemoryStore) WalletsByOwner(ctx context.Context, ownerID string) ([]Wallet, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.byOwner[ownerID]))
	for _, id := range s.byOwner[ownerID] {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	wallets := make([]Wallet, 0, len(ids))
	for _, id := range ids {
		w, err := s.WalletByID(ctx, id)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func (s *inMemoryStore) EntriesByUser(_ context.Context, userID string) ([]Entry, error) {
	s.entryMu.Lock()
	defer s.entryMu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *inMemoryStore) Credit(_ context.Context, walletID string, entry Entry) error {
	mw, err := s.lookup(walletID)
	if err != nil {
		return err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.w.Balance += entry.Amount
	s.append(entry)
	return nil
}

func (s *inMemoryStore) Debit(_ context.Context, walletID string, entry Entry) error {
	mw, err := s.lookup(walletID)
	if err != nil {
		return err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.w.Balance < entry.Amount {
		return ErrInsufficientFunds
	}
	mw.w.Balance -= entry.Amount
	s.append(entry)
	return nil
}

func (s *inMemoryStore) Transfer(_ context.Context, fromWalletID, toWalletID string, entry Entry) error {
	if fromWalletID == toWalletID {
		return ErrInvalidOperation
	}
	from, err := s.lookup(fromWalletID)
	if err != nil {
		return err
	}
	to, err := s.lookup(toWalletID)
	if err != nil {
		return ErrRecipientNotFound
	}

	// Lock both wallets in ascending ID order so two opposite-direction
	// transfers can never deadlock.
	first, second := from, to
	if toWalletID < fromWalletID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.w.Balance < entry.Amount {
		return ErrInsufficientFunds
	}
	from.w.Balance -= entry.Amount
	to.w.Balance += entry.Amount
	s.append(entry)
	return nil
}

func (s *inMemoryStore) lookup(id string) (*memWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mw, ok := s.wallets[id]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return mw, nil
}

// append must be called while holding the mutated wallet lock(s) so the
// entry becomes visible together with the balance change.
func (s *inMemoryStore) append(entry Entry) {
	s.entryMu.Lock()
	s.entries = append(s.entries, entry)
	s.entryMu.Unlock()
}
