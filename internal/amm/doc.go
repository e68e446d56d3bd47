// Package amm implements the CENNZX constant-product pricing model.
//
// Every function is pure integer arithmetic on math/big values and is safe to
// call concurrently. Rounding always favours the pool: the raw exchange cost
// of an exact-output swap is rounded up, payouts and minted shares are
// rounded down.
package amm
