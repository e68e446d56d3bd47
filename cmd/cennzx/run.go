package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cennzxScope/internal/accounts"
	"cennzxScope/internal/amm"
	"cennzxScope/internal/chain"
	"cennzxScope/internal/config"
	"cennzxScope/internal/harness"
	"cennzxScope/internal/model"
	"cennzxScope/internal/storage"
	"cennzxScope/internal/storage/postgres"
)

func runHarness(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	trader, err := model.ParseAccountRef(cfg.Trader)
	if err != nil {
		return fmt.Errorf("parse trader: %w", err)
	}

	scenarios := harness.DefaultScenarios()
	if cfg.Scenarios != "" {
		scenarios, err = harness.LoadScenarios(cfg.Scenarios)
		if err != nil {
			return err
		}
	}
	scenarios, err = selectScenarios(scenarios, cfg.Only)
	if err != nil {
		return err
	}

	checkpoint := harness.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled)
	runID := cfg.RunID
	if runID == "" {
		cp, ok, err := checkpoint.Load("")
		if err != nil {
			return err
		}
		if ok && cp.RunID != "" {
			runID = cp.RunID
		} else {
			runID = newRunID(time.Now())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, chain.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		TxTimeout:    cfg.TxTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	fee := amm.FeeRate(cfg.FeeRate)
	if fee == 0 {
		fee, err = chainClient.FeeRate(ctx)
		if err != nil {
			return fmt.Errorf("fetch fee rate: %w", err)
		}
	}
	formula, err := amm.New(fee)
	if err != nil {
		return err
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serveMetrics(ctx, cfg.MetricsAddr, reg, logger)

	runner := harness.NewRunner(harness.RunConfig{
		Formula:         formula,
		Tolerance:       cfg.Tolerance,
		Concurrency:     cfg.Concurrency,
		ScenarioTimeout: cfg.ScenarioTimeout,
		Trader:          trader,
		RunID:           runID,
	}, chainClient, accounts.NewResolver(accounts.GenericPrefix, chainClient.ResolveSeed), sinks, logger).
		WithMetrics(harness.NewMetrics(reg)).
		WithCheckpoint(checkpoint)

	logger.Info("harness start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("run_id", runID),
		zap.String("fee_rate", fee.String()),
		zap.Int64("tolerance", cfg.Tolerance),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("trader", trader.String()),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	summary, err := runner.Run(ctx, scenarios)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.SaveState(ctx, postgres.RunState{
			RunID:   summary.RunID,
			Passed:  summary.Passed,
			Failed:  summary.Failed,
			Skipped: len(summary.Skipped),
			FeeRate: uint64(fee),
		}); err != nil {
			return fmt.Errorf("save run state: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted with %d scenarios skipped: %w", len(summary.Skipped), err)
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, len(summary.Results))
	}
	return nil
}

// selectScenarios keeps the named scenarios in catalog order.
func selectScenarios(all []harness.Scenario, only []string) ([]harness.Scenario, error) {
	if len(only) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = false
	}
	selected := make([]harness.Scenario, 0, len(only))
	for _, sc := range all {
		if _, ok := wanted[sc.Name]; ok {
			wanted[sc.Name] = true
			selected = append(selected, sc)
		}
	}
	for _, name := range only {
		if !wanted[name] {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
	}
	return selected, nil
}

func newRunID(now time.Time) string {
	return "run-" + now.UTC().Format("20060102T150405Z")
}
