package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/config"
	"cennzxScope/internal/model"
	"cennzxScope/internal/simchain"
)

func runDevnode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDevnode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	txFee, err := model.ParseAmount(cfg.TxFee)
	if err != nil {
		return fmt.Errorf("parse tx-fee: %w", err)
	}

	opts := simchain.DefaultOptions()
	opts.FeeRate = amm.FeeRate(cfg.FeeRate)
	opts.TxFee = txFee
	opts.BlockTime = cfg.BlockTime
	opts.FinalityDepth = cfg.FinalityDepth
	opts.QuoteSkew = cfg.QuoteSkew

	node, err := simchain.New(opts, logger)
	if err != nil {
		return err
	}
	server, err := simchain.NewRPCServer(node)
	if err != nil {
		return err
	}
	defer server.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           rpcHandler(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return node.Run(ctx)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve rpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("devnode start",
		zap.String("listen", cfg.Listen),
		zap.Uint64("core_asset", uint64(node.CoreAsset())),
		zap.String("fee_rate", node.FeeRate().String()),
		zap.String("tx_fee", cfg.TxFee),
		zap.Duration("block_time", cfg.BlockTime),
		zap.Uint64("finality_depth", cfg.FinalityDepth),
		zap.Int64("quote_skew", cfg.QuoteSkew),
	)

	return g.Wait()
}

// rpcHandler serves WebSocket upgrades and plain HTTP JSON-RPC on one port.
func rpcHandler(server *rpc.Server) http.Handler {
	ws := server.WebsocketHandler([]string{"*"})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			ws.ServeHTTP(w, r)
			return
		}
		server.ServeHTTP(w, r)
	})
}
