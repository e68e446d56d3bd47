package amm

import (
	"fmt"
	"math/big"
)

// FeeScale is the denominator of FeeRate.
const FeeScale = 1_000_000

// DefaultFeeRate is 0.3%.
const DefaultFeeRate FeeRate = 3_000

// FeeRate is the swap fee in parts per million.
type FeeRate uint64

// Validate rejects rates of 100% or more.
func (f FeeRate) Validate() error {
	if f >= FeeScale {
		return fmt.Errorf("fee rate %d ppm must be below %d", uint64(f), FeeScale)
	}
	return nil
}

// String renders the rate as a percentage, e.g. "0.3%".
func (f FeeRate) String() string {
	return new(big.Rat).SetFrac64(int64(f)*100, FeeScale).FloatString(4) + "%"
}

// addFee returns floor(amount * (1 + f)).
func (f FeeRate) addFee(amount *big.Int) *big.Int {
	return mulDiv(amount, big.NewInt(FeeScale+int64(f)), big.NewInt(FeeScale))
}

// removeFee returns floor(amount / (1 + f)).
func (f FeeRate) removeFee(amount *big.Int) *big.Int {
	return mulDiv(amount, big.NewInt(FeeScale), big.NewInt(FeeScale+int64(f)))
}
