package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wrapRelay/internal/chain"
	"wrapRelay/internal/config"
	"wrapRelay/internal/history"
	"wrapRelay/internal/pipeline"
	"wrapRelay/internal/registry"
	"wrapRelay/internal/server"
	"wrapRelay/internal/settlement"
	"wrapRelay/internal/storage"
	"wrapRelay/internal/storage/memory"
	"wrapRelay/internal/storage/migrations"
	"wrapRelay/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
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
	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if cfg.TriggerToken == "" || cfg.MintToken == "" {
		return fmt.Errorf("trigger-token and mint-token are required")
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

	chainClient, err := chain.NewClient(ctx, chain.Config{
		RPCURL:        cfg.RPCURL,
		TxRPCURL:      cfg.TxRPCURL,
		PrivateKeyHex: cfg.PrivateKey,
		MintToken:     cfg.MintToken,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	engine, err := settlement.NewEngine(chainClient, settlement.Config{
		TriggerToken: cfg.TriggerToken,
		MintDecimals: cfg.MintDecimals,
		Multiplier:   cfg.Multiplier,
	}, logger)
	if err != nil {
		return fmt.Errorf("build settlement engine: %w", err)
	}

	var sink *pipeline.OutcomeSink
	if cfg.OutcomePath != "" {
		sink = pipeline.NewOutcomeSink(cfg.OutcomePath)
	}

	processor := pipeline.NewProcessor(reg, store, engine, sink, logger)
	historySvc := history.NewService(store, chainClient, logger)
	srv := server.New(cfg.ListenAddr, processor, historySvc, logger)

	logger.Info("relayer start",
		zap.String("listen", cfg.ListenAddr),
		zap.Int("tokens", reg.Len()),
		zap.String("triggerToken", cfg.TriggerToken),
		zap.String("mintToken", cfg.MintToken),
		zap.String("serviceWallet", chainClient.ServiceWallet().Hex()),
		zap.Bool("useMemory", cfg.UseMemory),
	)

	return srv.Run(ctx)
}

// buildStore picks the configured storage backend. Postgres migrations are
// idempotent and applied on startup.
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.TransferStore, func(), error) {
	if cfg.UseMemory {
		logger.Warn("using in-memory storage, transfers will not survive a restart")
		return memory.NewTransferStore(), func() {}, nil
	}

	if cfg.PostgresDSN == "" {
		return nil, nil, fmt.Errorf("postgres-dsn is required unless --use-memory is set")
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return postgres.NewTransferStore(pool), pool.Close, nil
}
