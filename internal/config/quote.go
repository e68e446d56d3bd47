package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Quote operations understood by the quote command.
const (
	QuoteSellCore  = "sell-core"
	QuoteSellToken = "sell-token"
	QuoteBuyCore   = "buy-core"
	QuoteBuyToken  = "buy-token"
	QuoteAdd       = "add"
	QuoteRemove    = "remove"
)

// QuoteConfig holds configuration for the quote command. With an RPC URL and
// token the pool is read from the node; otherwise the pool flags are used.
type QuoteConfig struct {
	RPCURL         string
	FeeRate        uint64
	Op             string
	Amount         string
	Token          uint64
	PoolCore       string
	PoolToken      string
	TotalLiquidity string
	LogLevel       string
}

// Offline reports whether the quote is computed without a node.
func (c QuoteConfig) Offline() bool {
	return c.RPCURL == ""
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:         v.GetString("rpc"),
		FeeRate:        v.GetUint64("fee-rate"),
		Op:             strings.ToLower(strings.TrimSpace(v.GetString("op"))),
		Amount:         strings.TrimSpace(v.GetString("amount")),
		Token:          v.GetUint64("token"),
		PoolCore:       strings.TrimSpace(v.GetString("pool-core")),
		PoolToken:      strings.TrimSpace(v.GetString("pool-token")),
		TotalLiquidity: strings.TrimSpace(v.GetString("total-liquidity")),
		LogLevel:       v.GetString("log-level"),
	}

	switch cfg.Op {
	case QuoteSellCore, QuoteSellToken, QuoteBuyCore, QuoteBuyToken, QuoteAdd, QuoteRemove:
	default:
		return QuoteConfig{}, fmt.Errorf("unknown quote op %q", cfg.Op)
	}
	if cfg.Amount == "" {
		return QuoteConfig{}, fmt.Errorf("amount is required")
	}
	if cfg.Offline() {
		if cfg.PoolCore == "" || cfg.PoolToken == "" {
			return QuoteConfig{}, fmt.Errorf("pool-core and pool-token are required without rpc")
		}
		if cfg.Op == QuoteRemove && cfg.TotalLiquidity == "" {
			return QuoteConfig{}, fmt.Errorf("total-liquidity is required to quote a removal without rpc")
		}
	} else if cfg.Token == 0 {
		return QuoteConfig{}, fmt.Errorf("token is required with rpc")
	}
	return cfg, nil
}
