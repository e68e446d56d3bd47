package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cennzxScope/internal/model"
)

func TestNonceManagerAdvancesOnAcceptance(t *testing.T) {
	fetches := 0
	m := NewNonceManager(func(ctx context.Context, account model.Address) (uint64, error) {
		fetches++
		return 7, nil
	})

	var used []uint64
	send := func(ctx context.Context, nonce uint64) (string, error) {
		used = append(used, nonce)
		return "0x01", nil
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Submit(context.Background(), "alice", send); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if fetches != 1 {
		t.Fatalf("expected one fetch, got %d", fetches)
	}
	want := []uint64{7, 8, 9}
	for i := range want {
		if used[i] != want[i] {
			t.Fatalf("nonce %d: got %d want %d", i, used[i], want[i])
		}
	}
}

func TestNonceManagerRefetchesAfterFailure(t *testing.T) {
	next := uint64(3)
	m := NewNonceManager(func(ctx context.Context, account model.Address) (uint64, error) {
		return next, nil
	})

	_, err := m.Submit(context.Background(), "alice", func(ctx context.Context, nonce uint64) (string, error) {
		return "", errors.New("stale nonce")
	})
	if err == nil {
		t.Fatalf("expected submission error")
	}

	next = 5
	var got uint64
	if _, err := m.Submit(context.Background(), "alice", func(ctx context.Context, nonce uint64) (string, error) {
		got = nonce
		return "0x02", nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected refetched nonce 5, got %d", got)
	}
}

func TestNonceManagerSerializesPerAccount(t *testing.T) {
	m := NewNonceManager(func(ctx context.Context, account model.Address) (uint64, error) {
		return 0, nil
	})

	var (
		mu   sync.Mutex
		seen = make(map[model.Address]map[uint64]bool)
		wg   sync.WaitGroup
	)
	for _, account := range []model.Address{"alice", "bob"} {
		seen[account] = make(map[uint64]bool)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(account model.Address) {
				defer wg.Done()
				_, err := m.Submit(context.Background(), account, func(ctx context.Context, nonce uint64) (string, error) {
					mu.Lock()
					defer mu.Unlock()
					if seen[account][nonce] {
						return "", errors.New("nonce reused")
					}
					seen[account][nonce] = true
					return "0x03", nil
				})
				if err != nil {
					t.Errorf("submit for %s: %v", account, err)
				}
			}(account)
		}
	}
	wg.Wait()

	for account, nonces := range seen {
		if len(nonces) != 20 {
			t.Fatalf("%s: expected 20 distinct nonces, got %d", account, len(nonces))
		}
		for i := uint64(0); i < 20; i++ {
			if !nonces[i] {
				t.Fatalf("%s: nonce %d never used", account, i)
			}
		}
	}
}
