package amm

import "math/big"

// mulDiv returns floor(a*b/c) for non-negative operands.
func mulDiv(a, b, c *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, c)
}

// mulDivCeil returns ceil(a*b/c) for non-negative operands.
func mulDivCeil(a, b, c *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(new(big.Int).Mul(a, b), c, new(big.Int))
	if remainder.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}

func positive(value *big.Int) bool {
	return value != nil && value.Sign() > 0
}
