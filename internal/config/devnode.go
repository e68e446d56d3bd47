package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// DevnodeConfig holds configuration for the simulated node.
type DevnodeConfig struct {
	Listen        string
	FeeRate       uint64
	TxFee         string
	BlockTime     time.Duration
	FinalityDepth uint64
	QuoteSkew     int64
	LogLevel      string
	LogFile       string
}

// LoadDevnode merges config file, environment variables, and flags into DevnodeConfig.
func LoadDevnode(cfgFile string, flags *pflag.FlagSet) (DevnodeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"listen":     "127.0.0.1:9933",
		"fee-rate":   uint64(3000),
		"tx-fee":     "1000",
		"block-time": time.Duration(0),
		"log-level":  "info",
	})
	if err != nil {
		return DevnodeConfig{}, err
	}

	cfg := DevnodeConfig{
		Listen:        v.GetString("listen"),
		FeeRate:       v.GetUint64("fee-rate"),
		TxFee:         v.GetString("tx-fee"),
		BlockTime:     v.GetDuration("block-time"),
		FinalityDepth: v.GetUint64("finality-depth"),
		QuoteSkew:     v.GetInt64("quote-skew"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
	}
	if cfg.Listen == "" {
		return DevnodeConfig{}, fmt.Errorf("listen address is required")
	}
	if cfg.BlockTime < 0 {
		return DevnodeConfig{}, fmt.Errorf("block time must not be negative")
	}
	return cfg, nil
}
