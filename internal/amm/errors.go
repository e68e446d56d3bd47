package amm

import "errors"

var (
	// ErrInsufficientPoolLiquidity means the pool cannot pay out the requested amount.
	ErrInsufficientPoolLiquidity = errors.New("insufficient pool liquidity")
	// ErrInsufficientShares means a burn exceeds the trader's liquidity position.
	ErrInsufficientShares = errors.New("insufficient liquidity shares")
	// ErrEmptyPool means the pool has no liquidity to price against.
	ErrEmptyPool = errors.New("pool has no liquidity")
	// ErrInvalidAmount means an amount is missing, zero, or negative.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSlippage means a quote violates the caller's min/max bound.
	ErrSlippage = errors.New("slippage limit exceeded")
)
