package harness

import (
	"fmt"
	"math/big"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// poolKeys are the snapshot keys of one token's pool and the trader's holding.
type poolKeys struct {
	token  model.AssetID
	trader BalanceKey
	core   BalanceKey
	held   BalanceKey
	total  BalanceKey
}

func (s subject) keys(side Side) (poolKeys, bool) {
	switch side {
	case SideToken:
		return poolKeys{token: s.token, trader: TraderToken, core: PoolCore, held: PoolToken, total: TotalLiquidity}, true
	case SideSecond:
		return poolKeys{token: s.second, trader: TraderSecond, core: SecondPoolCore, held: SecondPoolToken, total: SecondTotalShare}, true
	default:
		return poolKeys{}, false
	}
}

func (s subject) asset(side Side) model.AssetID {
	switch side {
	case SideToken:
		return s.token
	case SideSecond:
		return s.second
	default:
		return s.core
	}
}

func traderKey(s subject, side Side) BalanceKey {
	if keys, ok := s.keys(side); ok {
		return keys.trader
	}
	return TraderCore
}

// plan is the formula's prediction for one action.
type plan struct {
	deltas Deltas
	// price is the formula value checked against the live quote. Nil when
	// there is nothing to compare, such as a first deposit.
	price  *big.Int
	payout *model.LiquidityPayout
	// rejection is set when the request's bounds should make the node
	// refuse the action.
	rejection error
	// pools must keep a non-decreasing constant product.
	pools []poolKeys

	swap   model.SwapRequest
	add    model.AddLiquidityRequest
	remove model.RemoveLiquidityRequest
}

func predict(f amm.Formula, action Action, s subject, before Snapshot) (plan, error) {
	switch action.Type {
	case ActionSwap:
		return predictSwap(f, action, s, before)
	case ActionAddLiquidity:
		return predictAdd(action, s, before)
	case ActionRemoveLiquidity:
		return predictRemove(action, s, before)
	default:
		return plan{}, fmt.Errorf("unknown action %q", action.Type)
	}
}

func predictSwap(f amm.Formula, action Action, s subject, before Snapshot) (plan, error) {
	req := model.SwapRequest{
		Kind:        action.SwapKind,
		AssetSold:   s.asset(action.Sell),
		AssetBought: s.asset(action.Buy),
		Amount:      action.Amount,
		Limit:       action.Limit,
	}
	lookup := func(token model.AssetID) (model.ExchangePool, error) {
		for _, side := range []Side{SideToken, SideSecond} {
			if keys, ok := s.keys(side); ok && keys.token == token && before[keys.core] != nil {
				return before.pool(token, keys.core, keys.held, keys.total), nil
			}
		}
		return model.ExchangePool{}, fmt.Errorf("no tracked pool for asset %s", token)
	}

	quote, err := f.QuoteSwap(s.core, req, lookup)
	if err != nil {
		return plan{}, err
	}

	p := plan{deltas: Deltas{}, swap: req, rejection: amm.CheckLimit(req, quote)}
	if req.Kind == model.ExactInput {
		p.price = quote.Bought
	} else {
		p.price = quote.Sold
	}

	p.deltas.sub(traderKey(s, action.Sell), quote.Sold)
	p.deltas.add(traderKey(s, action.Buy), quote.Bought)

	sellPool, sellIsToken := s.keys(action.Sell)
	buyPool, buyIsToken := s.keys(action.Buy)
	switch {
	case sellIsToken && buyIsToken:
		p.deltas.add(sellPool.held, quote.Sold)
		p.deltas.sub(sellPool.core, quote.CoreLeg)
		p.deltas.add(buyPool.core, quote.CoreLeg)
		p.deltas.sub(buyPool.held, quote.Bought)
		p.pools = []poolKeys{sellPool, buyPool}
	case sellIsToken:
		p.deltas.add(sellPool.held, quote.Sold)
		p.deltas.sub(sellPool.core, quote.Bought)
		p.pools = []poolKeys{sellPool}
	default:
		p.deltas.add(buyPool.core, quote.Sold)
		p.deltas.sub(buyPool.held, quote.Bought)
		p.pools = []poolKeys{buyPool}
	}
	return p, nil
}

func predictAdd(action Action, s subject, before Snapshot) (plan, error) {
	keys, _ := s.keys(SideToken)
	pool := before.pool(s.token, keys.core, keys.held, keys.total)

	var (
		quote amm.AddQuote
		err   error
		price *big.Int
	)
	if pool.IsEmpty() {
		quote, err = amm.FirstDeposit(action.Core, action.Token)
	} else {
		quote, err = amm.AddLiquidityPrice(pool, action.Core)
		price = quote.TokenRequired
	}
	if err != nil {
		return plan{}, err
	}

	maxToken := action.Token
	if maxToken == nil {
		maxToken = quote.TokenRequired
	}
	p := plan{
		deltas:    Deltas{},
		price:     price,
		rejection: quote.Within(action.MinLiquidity, maxToken),
		add: model.AddLiquidityRequest{
			Token:          s.token,
			CoreAmount:     action.Core,
			MinLiquidity:   action.MinLiquidity,
			MaxTokenAmount: maxToken,
		},
	}
	p.deltas.sub(TraderCore, action.Core)
	p.deltas.sub(TraderToken, quote.TokenRequired)
	p.deltas.add(PoolCore, action.Core)
	p.deltas.add(PoolToken, quote.TokenRequired)
	p.deltas.add(TotalLiquidity, quote.Minted)
	p.deltas.add(TraderLiquidity, quote.Minted)
	return p, nil
}

func predictRemove(action Action, s subject, before Snapshot) (plan, error) {
	keys, _ := s.keys(SideToken)
	pool := before.pool(s.token, keys.core, keys.held, keys.total)
	position := model.LiquidityPosition{Trader: s.trader, Shares: before[TraderLiquidity]}

	shares := action.Shares
	if action.AllShares {
		shares = orZero(position.Shares)
	}
	payout, err := amm.RemoveLiquidityPrice(pool, position, shares)
	if err != nil {
		return plan{}, err
	}

	p := plan{
		deltas:    Deltas{},
		payout:    &payout,
		rejection: amm.PayoutWithin(payout, action.MinCore, action.MinToken),
		remove: model.RemoveLiquidityRequest{
			Token:    s.token,
			Shares:   shares,
			MinCore:  action.MinCore,
			MinToken: action.MinToken,
		},
	}
	p.deltas.add(TraderCore, payout.Core)
	p.deltas.add(TraderToken, payout.Token)
	p.deltas.sub(PoolCore, payout.Core)
	p.deltas.sub(PoolToken, payout.Token)
	p.deltas.sub(TotalLiquidity, shares)
	p.deltas.sub(TraderLiquidity, shares)
	return p, nil
}

// expectedDeltas adds the transaction fee to the prediction. A rejected
// action moves nothing but the fee.
func (p plan) expectedDeltas(fee *big.Int, rejected bool) Deltas {
	out := Deltas{}
	if !rejected {
		for key, value := range p.deltas {
			out[key] = new(big.Int).Set(value)
		}
	}
	out.sub(TraderCore, fee)
	return out
}
