package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/chain"
	"cennzxScope/internal/config"
	"cennzxScope/internal/model"
)

// quoteResult is a formula or live price. Removals set Payout, every other
// op sets Price; adds also set Minted.
type quoteResult struct {
	Price  *big.Int
	Minted *big.Int
	Payout model.LiquidityPayout
}

func (q quoteResult) String() string {
	switch {
	case q.Price != nil && q.Minted != nil:
		return fmt.Sprintf("token=%s minted=%s", q.Price, q.Minted)
	case q.Price != nil:
		return q.Price.String()
	default:
		return fmt.Sprintf("core=%s token=%s", model.FormatAmount(q.Payout.Core), model.FormatAmount(q.Payout.Token))
	}
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	amount, err := model.ParseAmount(cfg.Amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	if cfg.Offline() {
		pool, err := offlinePool(cfg)
		if err != nil {
			return err
		}
		fee := amm.FeeRate(cfg.FeeRate)
		if fee == 0 {
			fee = amm.DefaultFeeRate
		}
		formula, err := amm.New(fee)
		if err != nil {
			return err
		}
		quote, err := quoteFormula(formula, pool, cfg.Op, amount)
		if err != nil {
			return err
		}
		return writeQuote(cmd.OutOrStdout(), cfg.Op, fee, quote, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.Dial(ctx, cfg.RPCURL, chain.Options{}, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	fee := amm.FeeRate(cfg.FeeRate)
	if fee == 0 {
		if fee, err = client.FeeRate(ctx); err != nil {
			return fmt.Errorf("fetch fee rate: %w", err)
		}
	}
	formula, err := amm.New(fee)
	if err != nil {
		return err
	}

	token := model.AssetID(cfg.Token)
	core, err := client.CoreAssetID(ctx)
	if err != nil {
		return fmt.Errorf("get core asset: %w", err)
	}
	balance, err := client.PoolBalance(ctx, token)
	if err != nil {
		return fmt.Errorf("get pool balance: %w", err)
	}
	total, err := client.TotalLiquidity(ctx, token)
	if err != nil {
		return fmt.Errorf("get total liquidity: %w", err)
	}
	pool := model.NewExchangePool(token, balance.Core, balance.Token, total)

	logger.Debug("pool",
		zap.Uint64("token", cfg.Token),
		zap.String("core", model.FormatAmount(pool.CoreBalance)),
		zap.String("token_balance", model.FormatAmount(pool.TokenBalance)),
		zap.String("total_liquidity", model.FormatAmount(pool.TotalLiquidity)),
	)

	quote, err := quoteFormula(formula, pool, cfg.Op, amount)
	if err != nil {
		return err
	}
	live, err := quoteLive(ctx, client, core, token, cfg.Op, amount)
	if err != nil {
		return fmt.Errorf("live quote: %w", err)
	}
	return writeQuote(cmd.OutOrStdout(), cfg.Op, fee, quote, &live)
}

func offlinePool(cfg config.QuoteConfig) (model.ExchangePool, error) {
	core, err := model.ParseAmount(cfg.PoolCore)
	if err != nil {
		return model.ExchangePool{}, fmt.Errorf("parse pool-core: %w", err)
	}
	token, err := model.ParseAmount(cfg.PoolToken)
	if err != nil {
		return model.ExchangePool{}, fmt.Errorf("parse pool-token: %w", err)
	}
	total := big.NewInt(0)
	if cfg.TotalLiquidity != "" {
		if total, err = model.ParseAmount(cfg.TotalLiquidity); err != nil {
			return model.ExchangePool{}, fmt.Errorf("parse total-liquidity: %w", err)
		}
	} else if core.Sign() > 0 {
		// The first deposit mints its core amount, so an untouched pool has
		// as much liquidity as core.
		total = new(big.Int).Set(core)
	}
	return model.NewExchangePool(0, core, token, total), nil
}

func quoteFormula(formula amm.Formula, pool model.ExchangePool, op string, amount *big.Int) (quoteResult, error) {
	var (
		q   quoteResult
		err error
	)
	switch op {
	case config.QuoteSellCore:
		q.Price, err = formula.InputPrice(pool.CoreBalance, pool.TokenBalance, amount)
	case config.QuoteSellToken:
		q.Price, err = formula.InputPrice(pool.TokenBalance, pool.CoreBalance, amount)
	case config.QuoteBuyToken:
		q.Price, err = formula.OutputPrice(pool.CoreBalance, pool.TokenBalance, amount)
	case config.QuoteBuyCore:
		q.Price, err = formula.OutputPrice(pool.TokenBalance, pool.CoreBalance, amount)
	case config.QuoteAdd:
		var add amm.AddQuote
		add, err = amm.AddLiquidityPrice(pool, amount)
		q.Price, q.Minted = add.TokenRequired, add.Minted
	case config.QuoteRemove:
		position := model.LiquidityPosition{Shares: pool.TotalLiquidity}
		q.Payout, err = amm.RemoveLiquidityPrice(pool, position, amount)
	default:
		return quoteResult{}, fmt.Errorf("unknown quote op %q", op)
	}
	if err != nil {
		return quoteResult{}, fmt.Errorf("formula %s: %w", op, err)
	}
	return q, nil
}

func quoteLive(ctx context.Context, client *chain.Client, core, token model.AssetID, op string, amount *big.Int) (quoteResult, error) {
	var (
		q   quoteResult
		err error
	)
	switch op {
	case config.QuoteSellCore:
		q.Price, err = client.QuoteInputPrice(ctx, core, token, amount)
	case config.QuoteSellToken:
		q.Price, err = client.QuoteInputPrice(ctx, token, core, amount)
	case config.QuoteBuyToken:
		q.Price, err = client.QuoteOutputPrice(ctx, core, token, amount)
	case config.QuoteBuyCore:
		q.Price, err = client.QuoteOutputPrice(ctx, token, core, amount)
	case config.QuoteAdd:
		q.Price, err = client.QuoteAddLiquidityPrice(ctx, token, amount)
	case config.QuoteRemove:
		q.Payout, err = client.QuoteRemoveLiquidityPrice(ctx, token, amount)
	default:
		err = fmt.Errorf("unknown quote op %q", op)
	}
	return q, err
}

func writeQuote(w io.Writer, op string, fee amm.FeeRate, formula quoteResult, live *quoteResult) error {
	if _, err := fmt.Fprintf(w, "op=%s fee=%s formula=%s\n", op, fee, formula); err != nil {
		return err
	}
	if live == nil {
		return nil
	}
	if formula.Price != nil && live.Price != nil {
		diff := new(big.Int).Sub(live.Price, formula.Price)
		_, err := fmt.Fprintf(w, "live=%s diff=%s\n", live.Price, diff)
		return err
	}
	_, err := fmt.Fprintf(w, "live=%s\n", live)
	return err
}
