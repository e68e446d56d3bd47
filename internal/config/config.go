package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CENNZX_RPC.
const EnvPrefix = "CENNZX"

// RunConfig holds configuration for the run command.
type RunConfig struct {
	RPCURL string
	// FeeRate zero means the rate is fetched from the node at startup.
	FeeRate           uint64
	Tolerance         int64
	Concurrency       int
	ScenarioTimeout   time.Duration
	Trader            string
	Scenarios         string
	Only              []string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	RunID             string
	MaxRetries        int
	RetryBackoff      time.Duration
	TxTimeout         time.Duration
	LogLevel          string
	LogFile           string
	MetricsAddr       string
}

// LoadRun merges config file, environment variables, and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"tolerance":          int64(1),
		"concurrency":        1,
		"scenario-timeout":   5 * time.Minute,
		"trader":             "//Alice",
		"out":                "./data/results.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"tx-timeout":         2 * time.Minute,
		"log-level":          "info",
	})
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		RPCURL:            v.GetString("rpc"),
		FeeRate:           v.GetUint64("fee-rate"),
		Tolerance:         v.GetInt64("tolerance"),
		Concurrency:       v.GetInt("concurrency"),
		ScenarioTimeout:   v.GetDuration("scenario-timeout"),
		Trader:            v.GetString("trader"),
		Scenarios:         v.GetString("scenarios"),
		Only:              getStringSlice(v, "only"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		RunID:             v.GetString("run-id"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		TxTimeout:         v.GetDuration("tx-timeout"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
		MetricsAddr:       v.GetString("metrics-addr"),
	}

	if cfg.RPCURL == "" {
		return RunConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.Tolerance < 0 {
		return RunConfig{}, fmt.Errorf("tolerance must not be negative")
	}
	if cfg.Concurrency <= 0 {
		return RunConfig{}, fmt.Errorf("concurrency must be > 0")
	}
	return cfg, nil
}

// load builds a viper instance from defaults, CENNZX_* environment
// variables, bound flags and an optional config file.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("cennzx")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
