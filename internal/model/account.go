package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AccountRefKind tags an AccountRef.
type AccountRefKind string

const (
	AccountSeed    AccountRefKind = "seed"
	AccountAddress AccountRefKind = "address"
)

// AccountRef names an account either by keyring seed or by address.
type AccountRef struct {
	Kind  AccountRefKind
	Value string
}

// Seed references an account by its keyring seed, e.g. "//Alice".
func Seed(seed string) AccountRef {
	return AccountRef{Kind: AccountSeed, Value: seed}
}

// AddressRef references an account by its SS58 address.
func AddressRef(address string) AccountRef {
	return AccountRef{Kind: AccountAddress, Value: address}
}

// ParseAccountRef accepts "seed:<s>", "address:<a>", or a bare value where a
// leading "//" means a seed and anything else an address.
func ParseAccountRef(input string) (AccountRef, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return AccountRef{}, fmt.Errorf("empty account reference")
	}
	if kind, value, ok := strings.Cut(input, ":"); ok {
		switch AccountRefKind(kind) {
		case AccountSeed:
			return Seed(value), nil
		case AccountAddress:
			return AddressRef(value), nil
		}
	}
	if strings.HasPrefix(input, "//") {
		return Seed(input), nil
	}
	return AddressRef(input), nil
}

func (r AccountRef) String() string {
	return string(r.Kind) + ":" + r.Value
}

// MarshalJSON encodes the reference in its "kind:value" form.
func (r AccountRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes any form accepted by ParseAccountRef.
func (r *AccountRef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAccountRef(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
