package model

import "math/big"

// ExchangePool is one token's liquidity pool against the core asset.
type ExchangePool struct {
	TokenID        AssetID
	CoreBalance    *big.Int
	TokenBalance   *big.Int
	TotalLiquidity *big.Int
}

// NewExchangePool builds a pool, treating nil balances as zero.
func NewExchangePool(tokenID AssetID, core, token, total *big.Int) ExchangePool {
	return ExchangePool{
		TokenID:        tokenID,
		CoreBalance:    orZero(core),
		TokenBalance:   orZero(token),
		TotalLiquidity: orZero(total),
	}
}

// IsEmpty reports whether no liquidity has been minted yet.
func (p ExchangePool) IsEmpty() bool {
	return p.TotalLiquidity == nil || p.TotalLiquidity.Sign() == 0
}

// Clone returns a deep copy of the pool.
func (p ExchangePool) Clone() ExchangePool {
	return NewExchangePool(
		p.TokenID,
		new(big.Int).Set(orZero(p.CoreBalance)),
		new(big.Int).Set(orZero(p.TokenBalance)),
		new(big.Int).Set(orZero(p.TotalLiquidity)),
	)
}

// LiquidityPosition is a trader's share of a pool.
type LiquidityPosition struct {
	Trader Address
	Shares *big.Int
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return big.NewInt(0)
	}
	return value
}
