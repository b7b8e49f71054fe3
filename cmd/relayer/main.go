package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "relayer",
		Short:        "ERC-20 transfer webhook relay and settlement service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and history HTTP service",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":3000", "HTTP listen address")
	serveCmd.Flags().String("rpc", "", "chain RPC URL")
	serveCmd.Flags().String("tx-rpc", "", "transaction submission RPC URL (defaults to --rpc)")
	serveCmd.Flags().String("private-key", "", "service wallet private key (hex)")
	serveCmd.Flags().String("postgres-dsn", "", "Postgres DSN")
	serveCmd.Flags().Bool("use-memory", false, "use in-memory storage instead of Postgres")
	serveCmd.Flags().String("trigger-token", "", "deposit contract that triggers settlement")
	serveCmd.Flags().String("mint-token", "", "contract the mint and forward calls target")
	serveCmd.Flags().Uint("mint-decimals", 18, "minted token decimal precision")
	serveCmd.Flags().Int64("multiplier", 1, "integer multiplier applied to the scaled mint amount")
	serveCmd.Flags().String("outcomes", "./data/outcomes.jsonl", "per-entry outcome JSONL path (empty to disable)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay historical Transfer logs into storage (no settlement)",
		RunE:  runBackfill,
	}

	backfillCmd.Flags().String("rpc", "", "chain RPC URL")
	backfillCmd.Flags().String("postgres-dsn", "", "Postgres DSN")
	backfillCmd.Flags().Bool("use-memory", false, "use in-memory storage instead of Postgres")
	backfillCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	backfillCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	backfillCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	backfillCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	backfillCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	backfillCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	backfillCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	backfillCmd.Flags().String("outcomes", "", "per-entry outcome JSONL path (empty to disable)")
	backfillCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(backfillCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("postgres-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
