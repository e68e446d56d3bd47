package simchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"cennzxScope/internal/model"
)

// Local drives a Node in-process with the same semantics the JSON-RPC client
// gives a remote node. Waits that outlive ctx come back as TimedOut.
type Local struct {
	node *Node
}

func NewLocal(node *Node) *Local {
	return &Local{node: node}
}

func (l *Local) CoreAssetID(ctx context.Context) (model.AssetID, error) {
	return l.node.CoreAsset(), nil
}

func (l *Local) CreateToken(ctx context.Context, issuer model.Address, totalSupply *big.Int) (model.AssetID, error) {
	outcome, err := l.call(ctx, issuer, model.NewCreateAssetCall(totalSupply))
	if err != nil {
		return 0, err
	}
	switch outcome.Status {
	case model.TxTimedOut:
		return 0, fmt.Errorf("create token: %w", model.ErrOperationTimeout)
	case model.TxRejected:
		return 0, fmt.Errorf("%w: %s", model.ErrIssuanceRejected, outcome.Reason)
	}
	return outcome.CreatedAsset()
}

func (l *Local) PoolBalance(ctx context.Context, token model.AssetID) (model.PoolBalance, error) {
	pool := l.node.Pool(token)
	return model.PoolBalance{Core: pool.CoreBalance, Token: pool.TokenBalance}, nil
}

func (l *Local) Liquidity(ctx context.Context, token model.AssetID, trader model.Address) (*big.Int, error) {
	return l.node.LiquidityBalance(token, trader), nil
}

func (l *Local) TotalLiquidity(ctx context.Context, token model.AssetID) (*big.Int, error) {
	return l.node.Pool(token).TotalLiquidity, nil
}

func (l *Local) FreeBalance(ctx context.Context, account model.Address, asset model.AssetID) (*big.Int, error) {
	return l.node.FreeBalance(account, asset), nil
}

func (l *Local) QuoteInputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountSold *big.Int) (*big.Int, error) {
	return l.node.QuoteInput(assetSold, assetBought, amountSold)
}

func (l *Local) QuoteOutputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountBought *big.Int) (*big.Int, error) {
	return l.node.QuoteOutput(assetSold, assetBought, amountBought)
}

func (l *Local) QuoteAddLiquidityPrice(ctx context.Context, token model.AssetID, coreAmount *big.Int) (*big.Int, error) {
	return l.node.QuoteAddLiquidity(token, coreAmount)
}

func (l *Local) QuoteRemoveLiquidityPrice(ctx context.Context, token model.AssetID, shares *big.Int) (model.LiquidityPayout, error) {
	return l.node.QuoteRemoveLiquidity(token, shares)
}

func (l *Local) SubmitSwap(ctx context.Context, trader model.Address, req model.SwapRequest) (model.TxOutcome, error) {
	if err := req.Validate(); err != nil {
		return model.TxOutcome{}, err
	}
	return l.call(ctx, trader, model.NewSwapCall(req))
}

func (l *Local) SubmitAddLiquidity(ctx context.Context, trader model.Address, req model.AddLiquidityRequest) (model.TxOutcome, error) {
	return l.call(ctx, trader, model.NewAddLiquidityCall(req))
}

func (l *Local) SubmitRemoveLiquidity(ctx context.Context, trader model.Address, req model.RemoveLiquidityRequest) (model.TxOutcome, error) {
	return l.call(ctx, trader, model.NewRemoveLiquidityCall(req))
}

func (l *Local) call(ctx context.Context, signer model.Address, call model.Call) (model.TxOutcome, error) {
	hash, err := l.node.SubmitNext(signer, call)
	if err != nil {
		return model.TxOutcome{}, fmt.Errorf("submit %s: %w", call.Name(), err)
	}
	status, err := l.node.Wait(ctx, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return model.TxOutcome{Status: model.TxTimedOut, Hash: hash}, nil
		}
		return model.TxOutcome{}, err
	}
	return model.OutcomeFromStatus(hash, status)
}
