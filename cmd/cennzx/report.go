package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cennzxScope/internal/config"
	"cennzxScope/internal/model"
	"cennzxScope/internal/report"
	"cennzxScope/internal/storage/postgres"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, "")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []model.ScenarioResult
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		results, err = store.LoadResults(ctx, cfg.RunID)
		if err != nil {
			return fmt.Errorf("load results: %w", err)
		}
		if state, ok, err := store.LoadState(ctx, cfg.RunID); err != nil {
			return fmt.Errorf("load run state: %w", err)
		} else if ok {
			logger.Info("run state",
				zap.String("run_id", state.RunID),
				zap.Int("passed", state.Passed),
				zap.Int("failed", state.Failed),
				zap.Int("skipped", state.Skipped),
				zap.Uint64("fee_rate", state.FeeRate),
				zap.Time("updated_at", state.UpdatedAt),
			)
		}
	} else {
		file, err := os.Open(cfg.In)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()

		var stats report.ScanStats
		results, stats, err = report.Scan(file, cfg.RunID, logger)
		if err != nil {
			return err
		}
		logger.Debug("scan complete",
			zap.Int("lines", stats.Lines),
			zap.Int("decoded", stats.Decoded),
			zap.Int("failed", stats.Failed),
		)
	}

	if len(results) == 0 {
		return fmt.Errorf("no scenario results found")
	}
	summary := report.Summarize(results)
	if err := report.Render(cmd.OutOrStdout(), summary, cfg.Color); err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, summary.Total)
	}
	return nil
}
