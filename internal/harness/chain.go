package harness

import (
	"context"
	"math/big"

	"cennzxScope/internal/model"
)

// Chain is what the harness needs from a live CENNZX node. Every method may
// block on the network and must honour ctx.
type Chain interface {
	CoreAssetID(ctx context.Context) (model.AssetID, error)
	CreateToken(ctx context.Context, issuer model.Address, totalSupply *big.Int) (model.AssetID, error)

	PoolBalance(ctx context.Context, token model.AssetID) (model.PoolBalance, error)
	Liquidity(ctx context.Context, token model.AssetID, trader model.Address) (*big.Int, error)
	TotalLiquidity(ctx context.Context, token model.AssetID) (*big.Int, error)
	FreeBalance(ctx context.Context, account model.Address, asset model.AssetID) (*big.Int, error)

	QuoteInputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountSold *big.Int) (*big.Int, error)
	QuoteOutputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountBought *big.Int) (*big.Int, error)
	QuoteAddLiquidityPrice(ctx context.Context, token model.AssetID, coreAmount *big.Int) (*big.Int, error)
	QuoteRemoveLiquidityPrice(ctx context.Context, token model.AssetID, shares *big.Int) (model.LiquidityPayout, error)

	SubmitSwap(ctx context.Context, trader model.Address, req model.SwapRequest) (model.TxOutcome, error)
	SubmitAddLiquidity(ctx context.Context, trader model.Address, req model.AddLiquidityRequest) (model.TxOutcome, error)
	SubmitRemoveLiquidity(ctx context.Context, trader model.Address, req model.RemoveLiquidityRequest) (model.TxOutcome, error)
}

// AccountResolver turns an AccountRef into a canonical address.
type AccountResolver interface {
	Resolve(ctx context.Context, ref model.AccountRef) (model.Address, error)
}
