package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testWallet(id, owner, currency string) Wallet {
	return Wallet{ID: id, OwnerID: owner, Currency: currency, CreatedAt: time.Now().UTC()}
}

func testEntry(id, userID string, amount int64, kind, recipient string) Entry {
	return Entry{ID: id, UserID: userID, Amount: amount, Currency: "USDT", Kind: kind, RecipientWalletID: recipient, CreatedAt: time.Now().UTC()}
}

func TestInMemoryCreateWalletDuplicate(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if err := s.CreateWallet(ctx, testWallet("w1", "u1", "USDT")); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := s.CreateWallet(ctx, testWallet("w2", "u1", "USDT")); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists for same owner+currency, got %v", err)
	}
}

func TestInMemoryDebitInsufficientLeavesBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	if err := s.CreateWallet(ctx, testWallet("w1", "u1", "USDT")); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := s.Credit(ctx, "w1", testEntry("e1", "u1", 10_000, KindDeposit, "")); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := s.Debit(ctx, "w1", testEntry("e2", "u1", 15_000, KindWithdrawal, "")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, err := s.WalletByID(ctx, "w1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != 10_000 {
		t.Fatalf("balance changed by rejected debit: %d", w.Balance)
	}
	entries, _ := s.EntriesByUser(ctx, "u1")
	if len(entries) != 1 {
		t.Fatalf("rejected debit recorded an entry: %d entries", len(entries))
	}
}

func TestInMemoryTransferConservation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateWallet(ctx, testWallet("wa", "ua", "USDT"))
	s.CreateWallet(ctx, testWallet("wb", "ub", "USDT"))
	if err := s.Credit(ctx, "wa", testEntry("seed", "ua", 100_000, KindDeposit, "")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := testEntry(fmt.Sprintf("tx-%d", i), "ua", amount, KindTransfer, "wb")
			if err := s.Transfer(ctx, "wa", "wb", e); err != nil {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	wa, _ := s.WalletByID(ctx, "wa")
	wb, _ := s.WalletByID(ctx, "wb")
	if wa.Balance+wb.Balance != 100_000 {
		t.Fatalf("value not conserved: %d + %d", wa.Balance, wb.Balance)
	}
	if wb.Balance != workers*amount {
		t.Fatalf("expected recipient balance %d, got %d", workers*amount, wb.Balance)
	}
}

func TestInMemoryOppositeTransfersNoDeadlock(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateWallet(ctx, testWallet("wa", "ua", "USDT"))
	s.CreateWallet(ctx, testWallet("wb", "ub", "USDT"))
	s.Credit(ctx, "wa", testEntry("seed-a", "ua", 50_000, KindDeposit, ""))
	s.Credit(ctx, "wb", testEntry("seed-b", "ub", 50_000, KindDeposit, ""))

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			e := testEntry(fmt.Sprintf("ab-%d", i), "ua", 300, KindTransfer, "wb")
			if err := s.Transfer(ctx, "wa", "wb", e); err != nil {
				t.Errorf("a->b %d: %v", i, err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			e := testEntry(fmt.Sprintf("ba-%d", i), "ub", 200, KindTransfer, "wa")
			if err := s.Transfer(ctx, "wb", "wa", e); err != nil {
				t.Errorf("b->a %d: %v", i, err)
			}
		}
	}()
	wg.Wait()

	wa, _ := s.WalletByID(ctx, "wa")
	wb, _ := s.WalletByID(ctx, "wb")
	if wa.Balance+wb.Balance != 100_000 {
		t.Fatalf("value not conserved: %d + %d", wa.Balance, wb.Balance)
	}
	if wa.Balance < 0 || wb.Balance < 0 {
		t.Fatalf("negative balance observed: a=%d b=%d", wa.Balance, wb.Balance)
	}
	// Serial outcome: a loses 50 rounds of 300 and gains 50 of 200.
	if wa.Balance != 50_000-rounds*300+rounds*200 {
		t.Fatalf("unexpected final balance for a: %d", wa.Balance)
	}
}

func TestInMemoryConcurrentMixedOperationsConserveSum(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateWallet(ctx, testWallet("wa", "ua", "USDT"))
	s.CreateWallet(ctx, testWallet("wb", "ub", "USDT"))
	s.Credit(ctx, "wa", testEntry("seed", "ua", 100_000, KindDeposit, ""))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				s.Credit(ctx, "wa", testEntry(fmt.Sprintf("dep-%d", i), "ua", 1_000, KindDeposit, ""))
			case 1:
				s.Debit(ctx, "wa", testEntry(fmt.Sprintf("wd-%d", i), "ua", 1_000, KindWithdrawal, ""))
			case 2:
				s.Transfer(ctx, "wa", "wb", testEntry(fmt.Sprintf("tr-%d", i), "ua", 1_000, KindTransfer, "wb"))
			}
		}(i)
	}
	wg.Wait()

	// workers=8: indexes 0,3,6 deposit (+3000), 1,4,7 withdraw (-3000),
	// 2,5 transfer (net zero). All succeed given the seed.
	wa, _ := s.WalletByID(ctx, "wa")
	wb, _ := s.WalletByID(ctx, "wb")
	if wa.Balance+wb.Balance != 100_000 {
		t.Fatalf("expected sum 100000, got %d", wa.Balance+wb.Balance)
	}
}
