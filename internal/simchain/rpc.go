package simchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rpc"

	"cennzxScope/internal/model"
)

// NewRPCServer exposes node over JSON-RPC with the cennzx, genericAsset,
// system, author, keyring and chain namespaces.
func NewRPCServer(node *Node) (*rpc.Server, error) {
	server := rpc.NewServer()
	services := map[string]interface{}{
		"cennzx":       &cennzxAPI{node: node},
		"genericAsset": &genericAssetAPI{node: node},
		"system":       &systemAPI{node: node},
		"author":       &authorAPI{node: node},
		"keyring":      &keyringAPI{node: node},
		"chain":        &chainAPI{node: node},
	}
	for namespace, service := range services {
		if err := server.RegisterName(namespace, service); err != nil {
			server.Stop()
			return nil, fmt.Errorf("register %s api: %w", namespace, err)
		}
	}
	return server, nil
}

type cennzxAPI struct {
	node *Node
}

func (api *cennzxAPI) CoreAsset() uint64 {
	return uint64(api.node.CoreAsset())
}

func (api *cennzxAPI) FeeRate() uint64 {
	return uint64(api.node.FeeRate())
}

func (api *cennzxAPI) PoolBalance(assetID uint64) model.PoolBalanceResult {
	pool := api.node.Pool(model.AssetID(assetID))
	return model.PoolBalanceResult{Core: pool.CoreBalance.String(), Token: pool.TokenBalance.String()}
}

func (api *cennzxAPI) LiquidityBalance(assetID uint64, account string) (string, error) {
	address, err := api.node.Canonical(model.Address(account))
	if err != nil {
		return "", err
	}
	return api.node.LiquidityBalance(model.AssetID(assetID), address).String(), nil
}

func (api *cennzxAPI) TotalLiquidity(assetID uint64) string {
	return api.node.Pool(model.AssetID(assetID)).TotalLiquidity.String()
}

func (api *cennzxAPI) SellPrice(assetSold uint64, amount string, assetBought uint64) (string, error) {
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	price, err := api.node.QuoteInput(model.AssetID(assetSold), model.AssetID(assetBought), value)
	if err != nil {
		return "", err
	}
	return price.String(), nil
}

func (api *cennzxAPI) BuyPrice(assetBought uint64, amount string, assetSold uint64) (string, error) {
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	price, err := api.node.QuoteOutput(model.AssetID(assetSold), model.AssetID(assetBought), value)
	if err != nil {
		return "", err
	}
	return price.String(), nil
}

func (api *cennzxAPI) LiquidityPrice(assetID uint64, coreAmount string) (string, error) {
	value, err := parseAmount(coreAmount)
	if err != nil {
		return "", err
	}
	price, err := api.node.QuoteAddLiquidity(model.AssetID(assetID), value)
	if err != nil {
		return "", err
	}
	return price.String(), nil
}

func (api *cennzxAPI) LiquidityValue(assetID uint64, shares string) (model.PayoutResult, error) {
	value, err := parseAmount(shares)
	if err != nil {
		return model.PayoutResult{}, err
	}
	payout, err := api.node.QuoteRemoveLiquidity(model.AssetID(assetID), value)
	if err != nil {
		return model.PayoutResult{}, err
	}
	return model.PayoutResult{Core: payout.Core.String(), Token: payout.Token.String()}, nil
}

type genericAssetAPI struct {
	node *Node
}

func (api *genericAssetAPI) FreeBalance(account string, assetID uint64) (string, error) {
	address, err := api.node.Canonical(model.Address(account))
	if err != nil {
		return "", err
	}
	return api.node.FreeBalance(address, model.AssetID(assetID)).String(), nil
}

type systemAPI struct {
	node *Node
}

func (api *systemAPI) AccountNextIndex(account string) (uint64, error) {
	address, err := api.node.Canonical(model.Address(account))
	if err != nil {
		return 0, err
	}
	return api.node.AccountNextIndex(address), nil
}

type authorAPI struct {
	node *Node
}

func (api *authorAPI) SubmitCall(req model.CallRequest) (string, error) {
	return api.node.Submit(req)
}

func (api *authorAPI) CallStatus(hash string) (model.CallStatusResult, error) {
	return api.node.Status(hash)
}

type keyringAPI struct {
	node *Node
}

func (api *keyringAPI) Address(ctx context.Context, seed string) (string, error) {
	address, err := api.node.ResolveSeed(ctx, seed)
	if err != nil {
		return "", err
	}
	return string(address), nil
}

type chainAPI struct {
	node *Node
}

func (api *chainAPI) GetHeader() model.HeaderResult {
	return api.node.Header()
}

func parseAmount(value string) (*big.Int, error) {
	amount, err := model.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}
