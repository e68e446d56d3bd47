package model

import "math/big"

// AddLiquidityRequest deposits core and token into a pool. On the first
// deposit MaxTokenAmount is the exact token amount and sets the price.
type AddLiquidityRequest struct {
	Token          AssetID
	CoreAmount     *big.Int
	MinLiquidity   *big.Int
	MaxTokenAmount *big.Int
}

// RemoveLiquidityRequest burns liquidity shares for a proportional payout.
type RemoveLiquidityRequest struct {
	Token    AssetID
	Shares   *big.Int
	MinCore  *big.Int
	MinToken *big.Int
}
