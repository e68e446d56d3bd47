package simchain

import (
	"math/big"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// QuoteInput is the amount bought by selling amountSold, as the runtime API
// reports it.
func (n *Node) QuoteInput(sold, bought model.AssetID, amountSold *big.Int) (*big.Int, error) {
	return n.quoteSwap(model.SwapRequest{Kind: model.ExactInput, AssetSold: sold, AssetBought: bought, Amount: amountSold})
}

// QuoteOutput is the amount that must be sold to buy amountBought.
func (n *Node) QuoteOutput(sold, bought model.AssetID, amountBought *big.Int) (*big.Int, error) {
	return n.quoteSwap(model.SwapRequest{Kind: model.ExactOutput, AssetSold: sold, AssetBought: bought, Amount: amountBought})
}

func (n *Node) quoteSwap(req model.SwapRequest) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	quote, err := n.formula.QuoteSwap(n.opts.CoreAsset, req, n.lookupLocked)
	if err != nil {
		return nil, err
	}
	if req.Kind == model.ExactInput {
		return n.skew(quote.Bought), nil
	}
	return n.skew(quote.Sold), nil
}

// QuoteAddLiquidity is the token amount a deposit of coreAmount requires.
func (n *Node) QuoteAddLiquidity(token model.AssetID, coreAmount *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	quote, err := amm.AddLiquidityPrice(n.poolLocked(token), coreAmount)
	if err != nil {
		return nil, err
	}
	return n.skew(quote.TokenRequired), nil
}

// QuoteRemoveLiquidity is the payout for burning shares of the pool.
func (n *Node) QuoteRemoveLiquidity(token model.AssetID, shares *big.Int) (model.LiquidityPayout, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pool := n.poolLocked(token)
	payout, err := amm.RemoveLiquidityPrice(pool, model.LiquidityPosition{Shares: pool.TotalLiquidity}, shares)
	if err != nil {
		return model.LiquidityPayout{}, err
	}
	return model.LiquidityPayout{Core: n.skew(payout.Core), Token: n.skew(payout.Token)}, nil
}

func (n *Node) skew(value *big.Int) *big.Int {
	if n.opts.QuoteSkew == 0 {
		return value
	}
	return new(big.Int).Add(value, big.NewInt(n.opts.QuoteSkew))
}
