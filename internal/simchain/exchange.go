package simchain

import (
	"errors"
	"fmt"
	"math/big"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// Dispatch errors. A failed dispatch leaves all state untouched apart from
// the fee and nonce.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAsset        = errors.New("invalid asset id")
)

func knownCall(call model.Call) bool {
	switch call.Name() {
	case model.SectionGenericAsset + "." + model.MethodCreate,
		model.SectionCennzx + "." + model.MethodSellAsset,
		model.SectionCennzx + "." + model.MethodBuyAsset,
		model.SectionCennzx + "." + model.MethodAddLiquidity,
		model.SectionCennzx + "." + model.MethodRemoveLiquidity:
		return true
	}
	return false
}

func (n *Node) dispatchLocked(signer model.Address, call model.Call) ([]model.Event, error) {
	switch call.Method {
	case model.MethodCreate:
		return n.createLocked(signer, call)
	case model.MethodSellAsset, model.MethodBuyAsset:
		return n.swapLocked(signer, call)
	case model.MethodAddLiquidity:
		return n.addLiquidityLocked(signer, call)
	case model.MethodRemoveLiquidity:
		return n.removeLiquidityLocked(signer, call)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCall, call.Name())
	}
}

func (n *Node) createLocked(signer model.Address, call model.Call) ([]model.Event, error) {
	supply, err := call.Amount(model.ArgTotalSupply)
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return nil, fmt.Errorf("%w: total supply must be greater than zero", amm.ErrInvalidAmount)
	}

	asset := n.nextAsset
	n.nextAsset++
	n.assets[asset] = struct{}{}
	n.creditLocked(asset, signer, supply)

	return []model.Event{{Name: model.EventAssetCreated, Data: map[string]string{
		model.ArgAssetID: asset.String(),
		"owner":          string(signer),
		"total_supply":   supply.String(),
	}}}, nil
}

func (n *Node) swapLocked(signer model.Address, call model.Call) ([]model.Event, error) {
	req, err := swapRequest(call)
	if err != nil {
		return nil, err
	}
	if err := n.checkAssetLocked(req.AssetSold); err != nil {
		return nil, err
	}
	if err := n.checkAssetLocked(req.AssetBought); err != nil {
		return nil, err
	}

	quote, err := n.formula.QuoteSwap(n.opts.CoreAsset, req, n.lookupLocked)
	if err != nil {
		return nil, err
	}
	if err := amm.CheckLimit(req, quote); err != nil {
		return nil, err
	}
	if n.balanceLocked(req.AssetSold, signer).Cmp(quote.Sold) < 0 {
		return nil, fmt.Errorf("%w: selling %s of asset %s", ErrInsufficientBalance, quote.Sold, req.AssetSold)
	}

	core := n.opts.CoreAsset
	switch {
	case req.AssetSold == core:
		ex := n.pools[req.AssetBought]
		ex.core.Add(ex.core, quote.Sold)
		ex.token.Sub(ex.token, quote.Bought)
	case req.AssetBought == core:
		ex := n.pools[req.AssetSold]
		ex.token.Add(ex.token, quote.Sold)
		ex.core.Sub(ex.core, quote.Bought)
	default:
		sold, bought := n.pools[req.AssetSold], n.pools[req.AssetBought]
		sold.token.Add(sold.token, quote.Sold)
		sold.core.Sub(sold.core, quote.CoreLeg)
		bought.core.Add(bought.core, quote.CoreLeg)
		bought.token.Sub(bought.token, quote.Bought)
	}
	n.debitLocked(req.AssetSold, signer, quote.Sold)
	n.creditLocked(req.AssetBought, signer, quote.Bought)

	name := "cennzx.AssetSold"
	if req.Kind == model.ExactOutput {
		name = "cennzx.AssetBought"
	}
	return []model.Event{{Name: name, Data: map[string]string{
		"trader":       string(signer),
		"asset_sold":   req.AssetSold.String(),
		"asset_bought": req.AssetBought.String(),
		"sold":         quote.Sold.String(),
		"bought":       quote.Bought.String(),
	}}}, nil
}

func (n *Node) addLiquidityLocked(signer model.Address, call model.Call) ([]model.Event, error) {
	token, err := call.Asset(model.ArgAssetID)
	if err != nil {
		return nil, err
	}
	if token == n.opts.CoreAsset {
		return nil, fmt.Errorf("%w: cannot pool the core asset against itself", ErrInvalidAsset)
	}
	if err := n.checkAssetLocked(token); err != nil {
		return nil, err
	}
	coreIn, err := call.Amount(model.ArgCoreAmount)
	if err != nil {
		return nil, err
	}
	minLiquidity, err := call.Amount(model.ArgMinLiquidity)
	if err != nil {
		return nil, err
	}
	maxToken, err := call.Amount(model.ArgMaxAssetAmount)
	if err != nil {
		return nil, err
	}

	quote, err := amm.AddLiquidity(n.poolLocked(token), coreIn, maxToken)
	if err != nil {
		return nil, err
	}
	if err := quote.Within(minLiquidity, maxToken); err != nil {
		return nil, err
	}
	if n.balanceLocked(n.opts.CoreAsset, signer).Cmp(coreIn) < 0 {
		return nil, fmt.Errorf("%w: depositing %s core", ErrInsufficientBalance, coreIn)
	}
	if n.balanceLocked(token, signer).Cmp(quote.TokenRequired) < 0 {
		return nil, fmt.Errorf("%w: depositing %s of asset %s", ErrInsufficientBalance, quote.TokenRequired, token)
	}

	ex := n.pools[token]
	if ex == nil {
		ex = &exchange{core: new(big.Int), token: new(big.Int), total: new(big.Int), shares: make(map[model.Address]*big.Int)}
		n.pools[token] = ex
	}
	ex.core.Add(ex.core, coreIn)
	ex.token.Add(ex.token, quote.TokenRequired)
	ex.total.Add(ex.total, quote.Minted)
	if ex.shares[signer] == nil {
		ex.shares[signer] = new(big.Int)
	}
	ex.shares[signer].Add(ex.shares[signer], quote.Minted)
	n.debitLocked(n.opts.CoreAsset, signer, coreIn)
	n.debitLocked(token, signer, quote.TokenRequired)

	return []model.Event{{Name: "cennzx.AddLiquidity", Data: map[string]string{
		"provider":     string(signer),
		"core_amount":  coreIn.String(),
		"asset_id":     token.String(),
		"asset_amount": quote.TokenRequired.String(),
		"liquidity":    quote.Minted.String(),
	}}}, nil
}

func (n *Node) removeLiquidityLocked(signer model.Address, call model.Call) ([]model.Event, error) {
	token, err := call.Asset(model.ArgAssetID)
	if err != nil {
		return nil, err
	}
	burned, err := call.Amount(model.ArgLiquidity)
	if err != nil {
		return nil, err
	}
	minCore, err := call.Amount(model.ArgMinCoreWithdraw)
	if err != nil {
		return nil, err
	}
	minToken, err := call.Amount(model.ArgMinAssetWithdraw)
	if err != nil {
		return nil, err
	}

	ex := n.pools[token]
	position := model.LiquidityPosition{Trader: signer, Shares: new(big.Int)}
	if ex != nil && ex.shares[signer] != nil {
		position.Shares = ex.shares[signer]
	}
	payout, err := amm.RemoveLiquidityPrice(n.poolLocked(token), position, burned)
	if err != nil {
		return nil, err
	}
	if err := amm.PayoutWithin(payout, minCore, minToken); err != nil {
		return nil, err
	}

	ex.core.Sub(ex.core, payout.Core)
	ex.token.Sub(ex.token, payout.Token)
	ex.total.Sub(ex.total, burned)
	ex.shares[signer].Sub(ex.shares[signer], burned)
	n.creditLocked(n.opts.CoreAsset, signer, payout.Core)
	n.creditLocked(token, signer, payout.Token)

	return []model.Event{{Name: "cennzx.RemoveLiquidity", Data: map[string]string{
		"provider":     string(signer),
		"core_amount":  payout.Core.String(),
		"asset_id":     token.String(),
		"asset_amount": payout.Token.String(),
		"liquidity":    burned.String(),
	}}}, nil
}

func (n *Node) checkAssetLocked(asset model.AssetID) error {
	if _, ok := n.assets[asset]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidAsset, asset)
	}
	return nil
}

func (n *Node) lookupLocked(token model.AssetID) (model.ExchangePool, error) {
	return n.poolLocked(token), nil
}

func swapRequest(call model.Call) (model.SwapRequest, error) {
	sold, err := call.Asset(model.ArgAssetToSell)
	if err != nil {
		return model.SwapRequest{}, err
	}
	bought, err := call.Asset(model.ArgAssetToBuy)
	if err != nil {
		return model.SwapRequest{}, err
	}

	req := model.SwapRequest{AssetSold: sold, AssetBought: bought}
	if call.Method == model.MethodBuyAsset {
		req.Kind = model.ExactOutput
		if req.Amount, err = call.Amount(model.ArgBuyAmount); err != nil {
			return model.SwapRequest{}, err
		}
		req.Limit, err = call.Amount(model.ArgMaximumSell)
	} else {
		req.Kind = model.ExactInput
		if req.Amount, err = call.Amount(model.ArgSellAmount); err != nil {
			return model.SwapRequest{}, err
		}
		req.Limit, err = call.Amount(model.ArgMinimumBuy)
	}
	if err != nil {
		return model.SwapRequest{}, err
	}
	return req, nil
}
