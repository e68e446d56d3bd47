package amm

import (
	"fmt"
	"math/big"
)

// Formula prices swaps for a fixed fee rate.
type Formula struct {
	Fee FeeRate
}

// New returns a Formula after validating the fee rate.
func New(fee FeeRate) (Formula, error) {
	if err := fee.Validate(); err != nil {
		return Formula{}, err
	}
	return Formula{Fee: fee}, nil
}

// OutputPrice returns the amount that must be sold into a pool holding
// poolSold/poolBought to take amountBought out of it, fee included.
//
// The raw constant-product cost is rounded up before the fee is applied; the
// fee-inclusive result is rounded down.
func (f Formula) OutputPrice(poolSold, poolBought, amountBought *big.Int) (*big.Int, error) {
	if !positive(amountBought) {
		return nil, fmt.Errorf("%w: amount bought must be greater than zero", ErrInvalidAmount)
	}
	if !positive(poolSold) || !positive(poolBought) {
		return nil, fmt.Errorf("%w: pool is empty", ErrInsufficientPoolLiquidity)
	}
	if amountBought.Cmp(poolBought) >= 0 {
		return nil, fmt.Errorf("%w: requested %s, pool holds %s", ErrInsufficientPoolLiquidity, amountBought, poolBought)
	}

	remaining := new(big.Int).Sub(poolBought, amountBought)
	raw := mulDivCeil(poolSold, amountBought, remaining)
	return f.Fee.addFee(raw), nil
}

// InputPrice returns the amount taken out of a pool holding
// poolSold/poolBought when amountSold is sold into it, fee deducted first.
// The result is rounded down.
func (f Formula) InputPrice(poolSold, poolBought, amountSold *big.Int) (*big.Int, error) {
	if !positive(amountSold) {
		return nil, fmt.Errorf("%w: amount sold must be greater than zero", ErrInvalidAmount)
	}
	if !positive(poolSold) || !positive(poolBought) {
		return nil, fmt.Errorf("%w: pool is empty", ErrInsufficientPoolLiquidity)
	}

	effective := f.Fee.removeFee(amountSold)
	denominator := new(big.Int).Add(poolSold, effective)
	return mulDiv(poolBought, effective, denominator), nil
}
