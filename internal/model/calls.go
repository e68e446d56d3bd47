package model

import (
	"fmt"
	"math/big"
	"strconv"
)

// Call names and argument keys understood by the node.
const (
	SectionGenericAsset = "genericAsset"
	SectionCennzx       = "cennzx"

	MethodCreate          = "create"
	MethodSellAsset       = "sellAsset"
	MethodBuyAsset        = "buyAsset"
	MethodAddLiquidity    = "addLiquidity"
	MethodRemoveLiquidity = "removeLiquidity"

	ArgTotalSupply      = "total_supply"
	ArgAssetID          = "asset_id"
	ArgAssetToSell      = "asset_to_sell"
	ArgAssetToBuy       = "asset_to_buy"
	ArgSellAmount       = "sell_amount"
	ArgMinimumBuy       = "minimum_buy"
	ArgBuyAmount        = "buy_amount"
	ArgMaximumSell      = "maximum_sell"
	ArgCoreAmount       = "core_amount"
	ArgMinLiquidity     = "min_liquidity"
	ArgMaxAssetAmount   = "max_asset_amount"
	ArgLiquidity        = "liquidity"
	ArgMinCoreWithdraw  = "min_core_withdraw"
	ArgMinAssetWithdraw = "min_asset_withdraw"

	EventAssetCreated = "genericAsset.Created"
)

// MaxBalance stands in for an unbounded maximum. Balances are u128 on chain.
var MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// NewCreateAssetCall issues a new generic asset to the signer.
func NewCreateAssetCall(totalSupply *big.Int) Call {
	return Call{
		Section: SectionGenericAsset,
		Method:  MethodCreate,
		Args:    map[string]string{ArgTotalSupply: FormatAmount(totalSupply)},
	}
}

// NewSwapCall maps a SwapRequest to sellAsset or buyAsset. A nil limit is
// sent as zero minimum or MaxBalance maximum.
func NewSwapCall(req SwapRequest) Call {
	if req.Kind == ExactOutput {
		limit := req.Limit
		if limit == nil {
			limit = MaxBalance
		}
		return Call{
			Section: SectionCennzx,
			Method:  MethodBuyAsset,
			Args: map[string]string{
				ArgAssetToSell: req.AssetSold.String(),
				ArgAssetToBuy:  req.AssetBought.String(),
				ArgBuyAmount:   FormatAmount(req.Amount),
				ArgMaximumSell: FormatAmount(limit),
			},
		}
	}
	return Call{
		Section: SectionCennzx,
		Method:  MethodSellAsset,
		Args: map[string]string{
			ArgAssetToSell: req.AssetSold.String(),
			ArgAssetToBuy:  req.AssetBought.String(),
			ArgSellAmount:  FormatAmount(req.Amount),
			ArgMinimumBuy:  FormatAmount(req.Limit),
		},
	}
}

// NewAddLiquidityCall deposits into a pool.
func NewAddLiquidityCall(req AddLiquidityRequest) Call {
	maxToken := req.MaxTokenAmount
	if maxToken == nil {
		maxToken = MaxBalance
	}
	return Call{
		Section: SectionCennzx,
		Method:  MethodAddLiquidity,
		Args: map[string]string{
			ArgAssetID:        req.Token.String(),
			ArgCoreAmount:     FormatAmount(req.CoreAmount),
			ArgMinLiquidity:   FormatAmount(req.MinLiquidity),
			ArgMaxAssetAmount: FormatAmount(maxToken),
		},
	}
}

// NewRemoveLiquidityCall burns liquidity shares.
func NewRemoveLiquidityCall(req RemoveLiquidityRequest) Call {
	return Call{
		Section: SectionCennzx,
		Method:  MethodRemoveLiquidity,
		Args: map[string]string{
			ArgAssetID:          req.Token.String(),
			ArgLiquidity:        FormatAmount(req.Shares),
			ArgMinCoreWithdraw:  FormatAmount(req.MinCore),
			ArgMinAssetWithdraw: FormatAmount(req.MinToken),
		},
	}
}

// Amount reads a decimal argument.
func (c Call) Amount(key string) (*big.Int, error) {
	raw, ok := c.Args[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing argument %s", c.Name(), key)
	}
	value, err := ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: argument %s: %w", c.Name(), key, err)
	}
	return value, nil
}

// Asset reads an asset id argument.
func (c Call) Asset(key string) (AssetID, error) {
	raw, ok := c.Args[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing argument %s", c.Name(), key)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: argument %s: %w", c.Name(), key, err)
	}
	return AssetID(id), nil
}

// Terminal reports whether the call will not change status again.
func (s CallStatusResult) Terminal() bool {
	return s.Status == CallFinalized || s.Status == CallInvalid
}

// OutcomeFromStatus converts a terminal call status into a TxOutcome. A
// finalized call whose dispatch failed is a rejection; its fee was still paid.
func OutcomeFromStatus(hash string, status CallStatusResult) (TxOutcome, error) {
	outcome := TxOutcome{
		Hash:        hash,
		BlockNumber: uint64(status.BlockNumber),
		Events:      status.Events,
		Reason:      status.Reason,
	}
	if status.Fee != "" {
		fee, err := ParseAmount(status.Fee)
		if err != nil {
			return TxOutcome{}, fmt.Errorf("parse fee: %w", err)
		}
		outcome.Fee = fee
	}

	switch {
	case status.Status == CallFinalized && status.Success:
		outcome.Status = TxFinalized
	case status.Status == CallFinalized, status.Status == CallInvalid:
		outcome.Status = TxRejected
	default:
		outcome.Status = TxTimedOut
	}
	return outcome, nil
}

// CreatedAsset returns the asset id announced by a genericAsset.Created event.
func (o TxOutcome) CreatedAsset() (AssetID, error) {
	event, ok := o.FindEvent(EventAssetCreated)
	if !ok {
		return 0, fmt.Errorf("transaction %s has no %s event", o.Hash, EventAssetCreated)
	}
	id, err := strconv.ParseUint(event.Data[ArgAssetID], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse created asset id: %w", err)
	}
	return AssetID(id), nil
}
