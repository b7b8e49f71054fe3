package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wrapRelay/internal/backfill"
	"wrapRelay/internal/chain"
	"wrapRelay/internal/config"
	"wrapRelay/internal/pipeline"
	"wrapRelay/internal/registry"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Tokens) == 0 {
		return fmt.Errorf("token list is required")
	}

	reg, err := registry.New(cfg.Tokens)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	chainClient, err := chain.NewReadClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var sink *pipeline.OutcomeSink
	if cfg.OutcomePath != "" {
		sink = pipeline.NewOutcomeSink(cfg.OutcomePath)
	}

	// No settlement engine: replayed deposits must never mint or forward.
	processor := pipeline.NewProcessor(reg, store, nil, sink, logger)

	runner := backfill.NewRunner(backfill.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, reg, processor, logger)

	logger.Info("backfill start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("tokens", reg.Len()),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}
