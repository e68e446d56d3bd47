package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	root := &cobra.Command{
		Use:          "cennzx",
		Short:        "CENNZX exchange formula and node verification harness",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run verification scenarios against a node",
		RunE:  runHarness,
	}

	runCmd.Flags().String("rpc", "", "node RPC URL (http or ws)")
	runCmd.Flags().Uint64("fee-rate", 0, "exchange fee in parts per million, 0 fetches it from the node")
	runCmd.Flags().Int64("tolerance", 1, "accepted quote deviation in base units")
	runCmd.Flags().Int("concurrency", 1, "scenarios run in parallel")
	runCmd.Flags().Duration("scenario-timeout", 5*time.Minute, "timeout per scenario")
	runCmd.Flags().String("trader", "//Alice", "default trader seed or SS58 address")
	runCmd.Flags().String("scenarios", "", "scenario JSON file, empty runs the built-in catalog")
	runCmd.Flags().StringSlice("only", nil, "scenario names to run (comma-separated)")
	runCmd.Flags().String("out", "./data/results.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "skip scenarios that passed in a previous run")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for results")
	runCmd.Flags().String("run-id", "", "run identifier, generated when empty")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for reads")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("tx-timeout", 2*time.Minute, "wait for a call to finalize")
	runCmd.Flags().String("metrics-addr", "", "address to serve /metrics on, empty disables")
	addLogFlags(runCmd)

	root.AddCommand(runCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap or liquidity change with the exchange formula",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "node RPC URL; when set the pool is read and the live quote compared")
	quoteCmd.Flags().Uint64("fee-rate", 0, "exchange fee in parts per million, 0 uses the node or the default")
	quoteCmd.Flags().String("op", "", "sell-core, sell-token, buy-core, buy-token, add or remove")
	quoteCmd.Flags().String("amount", "", "amount sold, bought, deposited core or burned shares")
	quoteCmd.Flags().Uint64("token", 0, "token asset id (with --rpc)")
	quoteCmd.Flags().String("pool-core", "", "pool core balance (without --rpc)")
	quoteCmd.Flags().String("pool-token", "", "pool token balance (without --rpc)")
	quoteCmd.Flags().String("total-liquidity", "", "pool total liquidity (without --rpc)")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	devnodeCmd := &cobra.Command{
		Use:   "devnode",
		Short: "Serve an in-memory CENNZX node over JSON-RPC",
		RunE:  runDevnode,
	}

	devnodeCmd.Flags().String("listen", "127.0.0.1:9933", "HTTP and WebSocket listen address")
	devnodeCmd.Flags().Uint64("fee-rate", 3000, "exchange fee in parts per million")
	devnodeCmd.Flags().String("tx-fee", "1000", "core asset charged per call")
	devnodeCmd.Flags().Duration("block-time", 0, "block interval, 0 seals every call on submit")
	devnodeCmd.Flags().Uint64("finality-depth", 0, "blocks before a block is final")
	devnodeCmd.Flags().Int64("quote-skew", 0, "added to every price quote")
	addLogFlags(devnodeCmd)

	root.AddCommand(devnodeCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored scenario results",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "./data/results.jsonl", "input results JSONL")
	reportCmd.Flags().String("pg-dsn", "", "read results from Postgres instead")
	reportCmd.Flags().String("run-id", "", "only report this run")
	reportCmd.Flags().Bool("color", true, "colorize output")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "also write logs to this rotated file")
}

func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // megabytes
		MaxBackups: 10,
		MaxAge:     14, // days
		Compress:   true,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(rotated), cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// serveMetrics exposes reg on addr until ctx is done. Empty addr disables it.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
