package amm

import (
	"fmt"
	"math/big"

	"cennzxScope/internal/model"
)

// PoolLookup returns the current pool for a token.
type PoolLookup func(token model.AssetID) (model.ExchangePool, error)

// SwapQuote is the priced form of a SwapRequest.
type SwapQuote struct {
	Sold   *big.Int
	Bought *big.Int
	// CoreLeg is the core amount moved between the two pools of a
	// token-to-token swap. Nil when one side is the core asset.
	CoreLeg *big.Int
}

// QuoteSwap prices req against the pools returned by lookup. A swap between
// two tokens is priced as token->core followed by core->token, so the fee is
// charged twice.
func (f Formula) QuoteSwap(core model.AssetID, req model.SwapRequest, lookup PoolLookup) (SwapQuote, error) {
	if err := req.Validate(); err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	switch {
	case req.AssetSold == core:
		pool, err := lookup(req.AssetBought)
		if err != nil {
			return SwapQuote{}, err
		}
		return f.quoteLeg(req, pool.CoreBalance, pool.TokenBalance)
	case req.AssetBought == core:
		pool, err := lookup(req.AssetSold)
		if err != nil {
			return SwapQuote{}, err
		}
		return f.quoteLeg(req, pool.TokenBalance, pool.CoreBalance)
	default:
		soldPool, err := lookup(req.AssetSold)
		if err != nil {
			return SwapQuote{}, err
		}
		boughtPool, err := lookup(req.AssetBought)
		if err != nil {
			return SwapQuote{}, err
		}
		return f.quoteChained(req, soldPool, boughtPool)
	}
}

func (f Formula) quoteLeg(req model.SwapRequest, poolSold, poolBought *big.Int) (SwapQuote, error) {
	if req.Kind == model.ExactInput {
		bought, err := f.InputPrice(poolSold, poolBought, req.Amount)
		if err != nil {
			return SwapQuote{}, err
		}
		return SwapQuote{Sold: new(big.Int).Set(req.Amount), Bought: bought}, nil
	}

	sold, err := f.OutputPrice(poolSold, poolBought, req.Amount)
	if err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{Sold: sold, Bought: new(big.Int).Set(req.Amount)}, nil
}

func (f Formula) quoteChained(req model.SwapRequest, soldPool, boughtPool model.ExchangePool) (SwapQuote, error) {
	if req.Kind == model.ExactInput {
		coreLeg, err := f.InputPrice(soldPool.TokenBalance, soldPool.CoreBalance, req.Amount)
		if err != nil {
			return SwapQuote{}, fmt.Errorf("sell leg: %w", err)
		}
		bought, err := f.InputPrice(boughtPool.CoreBalance, boughtPool.TokenBalance, coreLeg)
		if err != nil {
			return SwapQuote{}, fmt.Errorf("buy leg: %w", err)
		}
		return SwapQuote{Sold: new(big.Int).Set(req.Amount), Bought: bought, CoreLeg: coreLeg}, nil
	}

	coreLeg, err := f.OutputPrice(boughtPool.CoreBalance, boughtPool.TokenBalance, req.Amount)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("buy leg: %w", err)
	}
	sold, err := f.OutputPrice(soldPool.TokenBalance, soldPool.CoreBalance, coreLeg)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("sell leg: %w", err)
	}
	return SwapQuote{Sold: sold, Bought: new(big.Int).Set(req.Amount), CoreLeg: coreLeg}, nil
}

// CheckLimit reports ErrSlippage when quote violates the request's bound.
// A nil or zero minimum and a nil maximum are unbounded.
func CheckLimit(req model.SwapRequest, quote SwapQuote) error {
	if req.Limit == nil {
		return nil
	}
	switch req.Kind {
	case model.ExactInput:
		if quote.Bought.Cmp(req.Limit) < 0 {
			return fmt.Errorf("%w: bought %s below minimum %s", ErrSlippage, quote.Bought, req.Limit)
		}
	case model.ExactOutput:
		if quote.Sold.Cmp(req.Limit) > 0 {
			return fmt.Errorf("%w: sold %s above maximum %s", ErrSlippage, quote.Sold, req.Limit)
		}
	}
	return nil
}

// Product returns core*token, the pool's constant-product invariant.
func Product(pool model.ExchangePool) *big.Int {
	if pool.CoreBalance == nil || pool.TokenBalance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(pool.CoreBalance, pool.TokenBalance)
}

// Within reports whether got is within tolerance of want.
func Within(got, want *big.Int, tolerance int64) bool {
	diff := new(big.Int).Sub(got, want)
	return diff.CmpAbs(big.NewInt(tolerance)) <= 0
}
