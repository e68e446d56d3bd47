package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"cennzxScope/internal/accounts"
	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
	"cennzxScope/internal/simchain"
)

func newTestClient(t *testing.T, nodeOpts simchain.Options, opts Options) (*Client, *simchain.Node) {
	t.Helper()
	node, err := simchain.New(nodeOpts, nil)
	require.NoError(t, err)
	server, err := simchain.NewRPCServer(node)
	require.NoError(t, err)
	t.Cleanup(server.Stop)

	client := NewClient(rpc.DialInProc(server), opts, nil)
	t.Cleanup(client.Close)
	return client, node
}

func alice(t *testing.T) model.Address {
	t.Helper()
	address, ok := accounts.DevAddress("//Alice")
	require.True(t, ok)
	return address
}

func TestClientReadsNodeParameters(t *testing.T) {
	client, _ := newTestClient(t, simchain.DefaultOptions(), Options{})
	ctx := context.Background()

	core, err := client.CoreAssetID(ctx)
	require.NoError(t, err)
	require.Equal(t, simchain.DefaultCoreAsset, core)

	fee, err := client.FeeRate(ctx)
	require.NoError(t, err)
	require.Equal(t, amm.DefaultFeeRate, fee)

	address, err := client.ResolveSeed(ctx, "//Alice")
	require.NoError(t, err)
	require.Equal(t, alice(t), address)

	header, err := client.Header(ctx)
	require.NoError(t, err)
	require.Zero(t, uint64(header.Number))
}

func TestClientSwapMatchesFormula(t *testing.T) {
	client, _ := newTestClient(t, simchain.DefaultOptions(), Options{})
	ctx := context.Background()
	trader := alice(t)

	token, err := client.CreateToken(ctx, trader, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, simchain.DefaultFirstTokenID, token)

	outcome, err := client.SubmitAddLiquidity(ctx, trader, model.AddLiquidityRequest{
		Token:          token,
		CoreAmount:     big.NewInt(200000),
		MaxTokenAmount: big.NewInt(100000),
	})
	require.NoError(t, err)
	require.Equal(t, model.TxFinalized, outcome.Status)

	pool, err := client.PoolBalance(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "200000", pool.Core.String())
	require.Equal(t, "100000", pool.Token.String())

	total, err := client.TotalLiquidity(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "200000", total.String())

	quote, err := client.QuoteInputPrice(ctx, simchain.DefaultCoreAsset, token, big.NewInt(10000))
	require.NoError(t, err)
	require.Equal(t, "4748", quote.String())

	cost, err := client.QuoteOutputPrice(ctx, simchain.DefaultCoreAsset, token, big.NewInt(5000))
	require.NoError(t, err)
	expected, err := amm.Formula{Fee: amm.DefaultFeeRate}.OutputPrice(big.NewInt(200000), big.NewInt(100000), big.NewInt(5000))
	require.NoError(t, err)
	require.Equal(t, expected.String(), cost.String())

	before, err := client.FreeBalance(ctx, trader, token)
	require.NoError(t, err)

	outcome, err = client.SubmitSwap(ctx, trader, model.SwapRequest{
		Kind:        model.ExactInput,
		AssetSold:   simchain.DefaultCoreAsset,
		AssetBought: token,
		Amount:      big.NewInt(10000),
		Limit:       big.NewInt(4748),
	})
	require.NoError(t, err)
	require.Equal(t, model.TxFinalized, outcome.Status)
	require.Equal(t, "1000", outcome.FeePaid().String())
	_, ok := outcome.FindEvent("cennzx.AssetSold")
	require.True(t, ok)

	after, err := client.FreeBalance(ctx, trader, token)
	require.NoError(t, err)
	require.Equal(t, "4748", new(big.Int).Sub(after, before).String())

	payout, err := client.QuoteRemoveLiquidityPrice(ctx, token, big.NewInt(100000))
	require.NoError(t, err)
	require.Equal(t, "105000", payout.Core.String())
	require.Equal(t, "47626", payout.Token.String())
}

func TestClientReportsRejectionAndKeepsNonce(t *testing.T) {
	client, node := newTestClient(t, simchain.DefaultOptions(), Options{})
	ctx := context.Background()
	trader := alice(t)

	token, err := client.CreateToken(ctx, trader, big.NewInt(1_000_000))
	require.NoError(t, err)
	_, err = client.SubmitAddLiquidity(ctx, trader, model.AddLiquidityRequest{
		Token:          token,
		CoreAmount:     big.NewInt(200000),
		MaxTokenAmount: big.NewInt(100000),
	})
	require.NoError(t, err)

	outcome, err := client.SubmitSwap(ctx, trader, model.SwapRequest{
		Kind:        model.ExactInput,
		AssetSold:   simchain.DefaultCoreAsset,
		AssetBought: token,
		Amount:      big.NewInt(10000),
		Limit:       big.NewInt(5000),
	})
	require.NoError(t, err)
	require.Equal(t, model.TxRejected, outcome.Status)
	require.Contains(t, outcome.Reason, "slippage")
	require.Equal(t, "1000", outcome.FeePaid().String())
	require.Equal(t, uint64(3), node.AccountNextIndex(trader))

	outcome, err = client.SubmitRemoveLiquidity(ctx, trader, model.RemoveLiquidityRequest{
		Token:  token,
		Shares: big.NewInt(200000),
	})
	require.NoError(t, err)
	require.Equal(t, model.TxFinalized, outcome.Status)
}

func TestClientIssuanceRejected(t *testing.T) {
	client, _ := newTestClient(t, simchain.DefaultOptions(), Options{})

	_, err := client.CreateToken(context.Background(), alice(t), big.NewInt(0))
	require.ErrorIs(t, err, model.ErrIssuanceRejected)
}

func TestClientTimesOutWithoutFinality(t *testing.T) {
	opts := simchain.DefaultOptions()
	opts.BlockTime = time.Hour
	client, node := newTestClient(t, opts, Options{
		TxTimeout:    50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})

	outcome, err := client.SubmitSwap(context.Background(), alice(t), model.SwapRequest{
		Kind:        model.ExactInput,
		AssetSold:   simchain.DefaultCoreAsset,
		AssetBought: simchain.DefaultFirstTokenID,
		Amount:      big.NewInt(1),
	})
	require.NoError(t, err)
	require.Equal(t, model.TxTimedOut, outcome.Status)
	require.NotEmpty(t, outcome.Hash)

	node.ProduceBlock()
	status, err := node.Status(outcome.Hash)
	require.NoError(t, err)
	require.Equal(t, model.CallFinalized, status.Status)
	require.False(t, status.Success)
}

func TestClientQuoteErrorIsNotRetried(t *testing.T) {
	client, _ := newTestClient(t, simchain.DefaultOptions(), Options{MaxRetries: 3, RetryBackoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.QuoteInputPrice(ctx, simchain.DefaultCoreAsset, 99999, big.NewInt(10))
	require.Error(t, err)
	require.NoError(t, ctx.Err())
}
