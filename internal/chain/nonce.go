package chain

import (
	"context"
	"sync"

	"cennzxScope/internal/model"
)

// NonceSource fetches the next index an account must use.
type NonceSource func(ctx context.Context, account model.Address) (uint64, error)

// NonceManager serializes submissions per signing account. The cached next
// index advances only when the node accepts a submission; any failure drops
// the cache so the next submission refetches it.
type NonceManager struct {
	fetch NonceSource

	mu       sync.Mutex
	accounts map[model.Address]*accountNonce
}

type accountNonce struct {
	mu    sync.Mutex
	next  uint64
	known bool
}

func NewNonceManager(fetch NonceSource) *NonceManager {
	return &NonceManager{fetch: fetch, accounts: make(map[model.Address]*accountNonce)}
}

// Submit calls send with the account's next nonce while holding the
// account's lock.
func (m *NonceManager) Submit(ctx context.Context, account model.Address, send func(ctx context.Context, nonce uint64) (string, error)) (string, error) {
	an := m.account(account)
	an.mu.Lock()
	defer an.mu.Unlock()

	if !an.known {
		next, err := m.fetch(ctx, account)
		if err != nil {
			return "", err
		}
		an.next, an.known = next, true
	}

	hash, err := send(ctx, an.next)
	if err != nil {
		an.known = false
		return "", err
	}
	an.next++
	return hash, nil
}

func (m *NonceManager) account(account model.Address) *accountNonce {
	m.mu.Lock()
	defer m.mu.Unlock()
	an, ok := m.accounts[account]
	if !ok {
		an = &accountNonce{}
		m.accounts[account] = an
	}
	return an
}
