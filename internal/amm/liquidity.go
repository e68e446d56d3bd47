package amm

import (
	"fmt"
	"math/big"

	"cennzxScope/internal/model"
)

// AddQuote is the cost and yield of a liquidity deposit.
type AddQuote struct {
	TokenRequired *big.Int
	Minted        *big.Int
}

// Within reports whether the quote satisfies the caller's bounds. A nil bound
// is not checked.
func (q AddQuote) Within(minLiquidity, maxTokenAmount *big.Int) error {
	if minLiquidity != nil && q.Minted.Cmp(minLiquidity) < 0 {
		return fmt.Errorf("%w: minted %s below minimum %s", ErrSlippage, q.Minted, minLiquidity)
	}
	if maxTokenAmount != nil && q.TokenRequired.Cmp(maxTokenAmount) > 0 {
		return fmt.Errorf("%w: token required %s above maximum %s", ErrSlippage, q.TokenRequired, maxTokenAmount)
	}
	return nil
}

// FirstDeposit prices the deposit that creates a pool. The caller's token
// amount sets the initial price and the minted liquidity equals coreIn.
func FirstDeposit(coreIn, tokenIn *big.Int) (AddQuote, error) {
	if !positive(coreIn) || !positive(tokenIn) {
		return AddQuote{}, fmt.Errorf("%w: first deposit needs core and token", ErrInvalidAmount)
	}
	return AddQuote{
		TokenRequired: new(big.Int).Set(tokenIn),
		Minted:        new(big.Int).Set(coreIn),
	}, nil
}

// AddLiquidityPrice prices a deposit of coreIn into a pool that already has
// liquidity. One unit is added on top of the rounded-up token amount so the
// deposit can never under-collateralize the pool.
func AddLiquidityPrice(pool model.ExchangePool, coreIn *big.Int) (AddQuote, error) {
	if !positive(coreIn) {
		return AddQuote{}, fmt.Errorf("%w: core amount must be greater than zero", ErrInvalidAmount)
	}
	if pool.IsEmpty() || !positive(pool.CoreBalance) {
		return AddQuote{}, ErrEmptyPool
	}

	token := mulDivCeil(pool.TokenBalance, coreIn, pool.CoreBalance)
	token.Add(token, big.NewInt(1))
	minted := mulDiv(coreIn, pool.TotalLiquidity, pool.CoreBalance)
	return AddQuote{TokenRequired: token, Minted: minted}, nil
}

// AddLiquidity prices a deposit whether or not the pool exists yet. tokenIn is
// only used for the first deposit.
func AddLiquidity(pool model.ExchangePool, coreIn, tokenIn *big.Int) (AddQuote, error) {
	if pool.IsEmpty() {
		return FirstDeposit(coreIn, tokenIn)
	}
	return AddLiquidityPrice(pool, coreIn)
}

// RemoveLiquidityPrice returns the pool's proportional payout for burning
// shares out of position. Both sides are rounded down; the dust stays in the
// pool.
func RemoveLiquidityPrice(pool model.ExchangePool, position model.LiquidityPosition, burned *big.Int) (model.LiquidityPayout, error) {
	if !positive(burned) {
		return model.LiquidityPayout{}, fmt.Errorf("%w: burned shares must be greater than zero", ErrInsufficientShares)
	}
	if position.Shares == nil || burned.Cmp(position.Shares) > 0 {
		return model.LiquidityPayout{}, fmt.Errorf("%w: burning %s of %s", ErrInsufficientShares, burned, model.FormatAmount(position.Shares))
	}
	if pool.IsEmpty() || burned.Cmp(pool.TotalLiquidity) > 0 {
		return model.LiquidityPayout{}, fmt.Errorf("%w: burning %s of total %s", ErrInsufficientShares, burned, model.FormatAmount(pool.TotalLiquidity))
	}

	return model.LiquidityPayout{
		Core:  mulDiv(pool.CoreBalance, burned, pool.TotalLiquidity),
		Token: mulDiv(pool.TokenBalance, burned, pool.TotalLiquidity),
	}, nil
}

// PayoutWithin checks a removal payout against minimum amounts.
func PayoutWithin(payout model.LiquidityPayout, minCore, minToken *big.Int) error {
	if minCore != nil && payout.Core.Cmp(minCore) < 0 {
		return fmt.Errorf("%w: core payout %s below minimum %s", ErrSlippage, payout.Core, minCore)
	}
	if minToken != nil && payout.Token.Cmp(minToken) < 0 {
		return fmt.Errorf("%w: token payout %s below minimum %s", ErrSlippage, payout.Token, minToken)
	}
	return nil
}
