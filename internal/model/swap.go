package model

import (
	"fmt"
	"math/big"
)

// SwapKind selects which side of a swap is fixed.
type SwapKind string

const (
	ExactInput  SwapKind = "exact_input"
	ExactOutput SwapKind = "exact_output"
)

// SwapRequest describes a trade.
//
// For ExactInput, Amount is the amount sold and Limit the minimum amount bought.
// For ExactOutput, Amount is the amount bought and Limit the maximum amount sold.
type SwapRequest struct {
	Kind        SwapKind
	AssetSold   AssetID
	AssetBought AssetID
	Amount      *big.Int
	Limit       *big.Int
}

// Validate checks the request shape, not prices.
func (r SwapRequest) Validate() error {
	switch r.Kind {
	case ExactInput, ExactOutput:
	default:
		return fmt.Errorf("unknown swap kind: %q", r.Kind)
	}
	if r.AssetSold == r.AssetBought {
		return fmt.Errorf("cannot swap asset %s for itself", r.AssetSold)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("swap amount must be greater than zero")
	}
	if r.Limit != nil && r.Limit.Sign() < 0 {
		return fmt.Errorf("swap limit must not be negative")
	}
	return nil
}
