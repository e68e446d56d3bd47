package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// Options tunes retries and transaction waits.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// TxTimeout bounds the wait for a submitted call to finalize.
	TxTimeout       time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = 2 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	if o.MaxPollInterval < o.PollInterval {
		o.MaxPollInterval = 5 * time.Second
	}
	return o
}

var errNotFinal = errors.New("call not final")

// Client talks to a CENNZX node over JSON-RPC. Calls are signed by the
// node-side keyring; the client only assigns nonces.
type Client struct {
	rpcClient *rpc.Client
	opts      Options
	nonces    *NonceManager
	logger    *zap.Logger
}

// Dial connects to an HTTP or WebSocket endpoint.
func Dial(ctx context.Context, rpcURL string, opts Options, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewClient(rpcClient, opts, logger), nil
}

// NewClient wraps an existing RPC client.
func NewClient(rpcClient *rpc.Client, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		rpcClient: rpcClient,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
	c.nonces = NewNonceManager(c.AccountNextIndex)
	return c
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return withRetry(ctx, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		err := c.rpcClient.CallContext(ctx, result, method, args...)
		if err != nil && retryable(err) {
			c.logger.Warn("rpc call failed", zap.String("method", method), zap.Error(err))
		}
		return err
	})
}

func (c *Client) callAmount(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	var raw string
	if err := c.call(ctx, &raw, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	amount, err := model.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return amount, nil
}

func (c *Client) CoreAssetID(ctx context.Context) (model.AssetID, error) {
	var id uint64
	if err := c.call(ctx, &id, "cennzx_coreAsset"); err != nil {
		return 0, fmt.Errorf("cennzx_coreAsset: %w", err)
	}
	return model.AssetID(id), nil
}

// FeeRate returns the exchange fee the node charges, in parts per million.
func (c *Client) FeeRate(ctx context.Context) (amm.FeeRate, error) {
	var rate uint64
	if err := c.call(ctx, &rate, "cennzx_feeRate"); err != nil {
		return 0, fmt.Errorf("cennzx_feeRate: %w", err)
	}
	fee := amm.FeeRate(rate)
	if err := fee.Validate(); err != nil {
		return 0, err
	}
	return fee, nil
}

// Header returns the node's best block.
func (c *Client) Header(ctx context.Context) (model.HeaderResult, error) {
	var header model.HeaderResult
	if err := c.call(ctx, &header, "chain_getHeader"); err != nil {
		return model.HeaderResult{}, fmt.Errorf("chain_getHeader: %w", err)
	}
	return header, nil
}

// ResolveSeed asks the node-side keyring for the address of seed.
func (c *Client) ResolveSeed(ctx context.Context, seed string) (model.Address, error) {
	var address string
	if err := c.call(ctx, &address, "keyring_address", seed); err != nil {
		return "", fmt.Errorf("keyring_address: %w", err)
	}
	return model.Address(address), nil
}

func (c *Client) AccountNextIndex(ctx context.Context, account model.Address) (uint64, error) {
	var nonce uint64
	if err := c.call(ctx, &nonce, "system_accountNextIndex", string(account)); err != nil {
		return 0, fmt.Errorf("system_accountNextIndex: %w", err)
	}
	return nonce, nil
}

func (c *Client) PoolBalance(ctx context.Context, token model.AssetID) (model.PoolBalance, error) {
	var raw model.PoolBalanceResult
	if err := c.call(ctx, &raw, "cennzx_poolBalance", uint64(token)); err != nil {
		return model.PoolBalance{}, fmt.Errorf("cennzx_poolBalance: %w", err)
	}
	core, err := model.ParseAmount(raw.Core)
	if err != nil {
		return model.PoolBalance{}, fmt.Errorf("parse pool core: %w", err)
	}
	held, err := model.ParseAmount(raw.Token)
	if err != nil {
		return model.PoolBalance{}, fmt.Errorf("parse pool token: %w", err)
	}
	return model.PoolBalance{Core: core, Token: held}, nil
}

func (c *Client) Liquidity(ctx context.Context, token model.AssetID, trader model.Address) (*big.Int, error) {
	return c.callAmount(ctx, "cennzx_liquidityBalance", uint64(token), string(trader))
}

func (c *Client) TotalLiquidity(ctx context.Context, token model.AssetID) (*big.Int, error) {
	return c.callAmount(ctx, "cennzx_totalLiquidity", uint64(token))
}

func (c *Client) FreeBalance(ctx context.Context, account model.Address, asset model.AssetID) (*big.Int, error) {
	return c.callAmount(ctx, "genericAsset_freeBalance", string(account), uint64(asset))
}

func (c *Client) QuoteInputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountSold *big.Int) (*big.Int, error) {
	return c.callAmount(ctx, "cennzx_sellPrice", uint64(assetSold), model.FormatAmount(amountSold), uint64(assetBought))
}

func (c *Client) QuoteOutputPrice(ctx context.Context, assetSold, assetBought model.AssetID, amountBought *big.Int) (*big.Int, error) {
	return c.callAmount(ctx, "cennzx_buyPrice", uint64(assetBought), model.FormatAmount(amountBought), uint64(assetSold))
}

func (c *Client) QuoteAddLiquidityPrice(ctx context.Context, token model.AssetID, coreAmount *big.Int) (*big.Int, error) {
	return c.callAmount(ctx, "cennzx_liquidityPrice", uint64(token), model.FormatAmount(coreAmount))
}

func (c *Client) QuoteRemoveLiquidityPrice(ctx context.Context, token model.AssetID, shares *big.Int) (model.LiquidityPayout, error) {
	var raw model.PayoutResult
	if err := c.call(ctx, &raw, "cennzx_liquidityValue", uint64(token), model.FormatAmount(shares)); err != nil {
		return model.LiquidityPayout{}, fmt.Errorf("cennzx_liquidityValue: %w", err)
	}
	core, err := model.ParseAmount(raw.Core)
	if err != nil {
		return model.LiquidityPayout{}, fmt.Errorf("parse payout core: %w", err)
	}
	held, err := model.ParseAmount(raw.Token)
	if err != nil {
		return model.LiquidityPayout{}, fmt.Errorf("parse payout token: %w", err)
	}
	return model.LiquidityPayout{Core: core, Token: held}, nil
}

// CreateToken issues totalSupply of a new asset to issuer and returns its id.
func (c *Client) CreateToken(ctx context.Context, issuer model.Address, totalSupply *big.Int) (model.AssetID, error) {
	outcome, err := c.Submit(ctx, issuer, model.NewCreateAssetCall(totalSupply))
	if err != nil {
		return 0, err
	}
	switch outcome.Status {
	case model.TxTimedOut:
		return 0, fmt.Errorf("create token %s: %w", outcome.Hash, model.ErrOperationTimeout)
	case model.TxRejected:
		return 0, fmt.Errorf("%w: %s", model.ErrIssuanceRejected, outcome.Reason)
	}
	return outcome.CreatedAsset()
}

func (c *Client) SubmitSwap(ctx context.Context, trader model.Address, req model.SwapRequest) (model.TxOutcome, error) {
	if err := req.Validate(); err != nil {
		return model.TxOutcome{}, err
	}
	return c.Submit(ctx, trader, model.NewSwapCall(req))
}

func (c *Client) SubmitAddLiquidity(ctx context.Context, trader model.Address, req model.AddLiquidityRequest) (model.TxOutcome, error) {
	return c.Submit(ctx, trader, model.NewAddLiquidityCall(req))
}

func (c *Client) SubmitRemoveLiquidity(ctx context.Context, trader model.Address, req model.RemoveLiquidityRequest) (model.TxOutcome, error) {
	return c.Submit(ctx, trader, model.NewRemoveLiquidityCall(req))
}

// Submit sends call signed by signer and waits for it to finalize. Submission
// is never retried; a refused submission returns an error, a dispatch
// failure a Rejected outcome.
func (c *Client) Submit(ctx context.Context, signer model.Address, call model.Call) (model.TxOutcome, error) {
	hash, err := c.nonces.Submit(ctx, signer, func(ctx context.Context, nonce uint64) (string, error) {
		var hash string
		err := c.rpcClient.CallContext(ctx, &hash, "author_submitCall", model.CallRequest{
			Signer: string(signer),
			Nonce:  nonce,
			Call:   call,
		})
		return hash, err
	})
	if err != nil {
		return model.TxOutcome{}, fmt.Errorf("submit %s: %w", call.Name(), err)
	}
	c.logger.Debug("call submitted", zap.String("call", call.Name()), zap.String("hash", hash), zap.String("signer", string(signer)))
	return c.wait(ctx, hash)
}

// wait polls the call status with exponential backoff until it is final or
// TxTimeout passes, which yields a TimedOut outcome.
func (c *Client) wait(ctx context.Context, hash string) (model.TxOutcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.TxTimeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.PollInterval
	policy.MaxInterval = c.opts.MaxPollInterval
	policy.MaxElapsedTime = 0

	var status model.CallStatusResult
	poll := func() error {
		var current model.CallStatusResult
		if err := c.rpcClient.CallContext(waitCtx, &current, "author_callStatus", hash); err != nil {
			if !retryable(err) && waitCtx.Err() == nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if !current.Terminal() {
			return errNotFinal
		}
		status = current
		return nil
	}

	if err := backoff.Retry(poll, backoff.WithContext(policy, waitCtx)); err != nil {
		if waitCtx.Err() != nil {
			c.logger.Warn("call wait timed out", zap.String("hash", hash), zap.Duration("timeout", c.opts.TxTimeout))
			return model.TxOutcome{Status: model.TxTimedOut, Hash: hash}, nil
		}
		return model.TxOutcome{}, fmt.Errorf("author_callStatus %s: %w", hash, err)
	}
	return model.OutcomeFromStatus(hash, status)
}
