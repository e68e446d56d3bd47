package model

import (
	"fmt"
	"math/big"
	"strings"
)

// AssetID identifies a generic asset on chain.
type AssetID uint64

func (id AssetID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Address is a canonical SS58 account address.
type Address string

func (a Address) String() string {
	return string(a)
}

// PoolBalance is the pair of reserves held by an exchange pool.
type PoolBalance struct {
	Core  *big.Int
	Token *big.Int
}

// LiquidityPayout is what burning liquidity shares returns to the trader.
type LiquidityPayout struct {
	Core  *big.Int
	Token *big.Int
}

// ParseAmount parses a base-10 decimal amount. Empty input is zero.
func ParseAmount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}

// FormatAmount renders an amount as a decimal string, "0" for nil.
func FormatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
