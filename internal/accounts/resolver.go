package accounts

import (
	"context"
	"fmt"

	"cennzxScope/internal/model"
)

// SeedResolver turns a keyring seed into an address, typically by asking the
// node-side keyring.
type SeedResolver func(ctx context.Context, seed string) (model.Address, error)

// Resolver turns AccountRefs into canonical addresses for one network prefix.
type Resolver struct {
	prefix   uint16
	fallback SeedResolver
}

// NewResolver builds a Resolver. fallback handles seeds outside the dev
// keyring and may be nil.
func NewResolver(prefix uint16, fallback SeedResolver) *Resolver {
	return &Resolver{prefix: prefix, fallback: fallback}
}

// Resolve returns the canonical address for ref.
func (r *Resolver) Resolve(ctx context.Context, ref model.AccountRef) (model.Address, error) {
	switch ref.Kind {
	case model.AccountAddress:
		address, err := Canonical(model.Address(ref.Value), r.prefix)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", ref, err)
		}
		return address, nil
	case model.AccountSeed:
		if address, ok := DevAddress(ref.Value); ok {
			return Canonical(address, r.prefix)
		}
		if r.fallback == nil {
			return "", errUnknownSeed(ref.Value)
		}
		address, err := r.fallback(ctx, ref.Value)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", ref, err)
		}
		return Canonical(address, r.prefix)
	default:
		return "", fmt.Errorf("unknown account reference kind %q", ref.Kind)
	}
}
