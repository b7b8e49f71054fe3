// Package backfill replays historical Transfer logs through the ingestion
// pipeline. Settlement stays disabled here: replaying a deposit must never
// re-issue mint or forward calls.
package backfill

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wrapRelay/internal/chain"
	"wrapRelay/internal/erc20"
	"wrapRelay/internal/model"
	"wrapRelay/internal/pipeline"
	"wrapRelay/internal/registry"
)

// RunConfig holds runtime settings for a backfill run.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams historical logs from the chain into the pipeline.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	registry   *registry.Registry
	processor  *pipeline.Processor
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. The processor must be
// constructed without a settlement engine.
func NewRunner(cfg RunConfig, chainClient *chain.Client, reg *registry.Registry, processor *pipeline.Processor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		registry:   reg,
		processor:  processor,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the backfill loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.processor == nil {
		return fmt.Errorf("processor is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	addresses := r.registry.Addresses()
	if len(addresses) == 0 {
		return fmt.Errorf("at least one token address is required")
	}

	topic0, err := erc20.TransferTopic0()
	if err != nil {
		return fmt.Errorf("transfer topic: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to backfill", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, addresses, []common.Hash{topic0})
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		result, err := r.processBatch(ctx, logs)
		if err != nil {
			return err
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("logs", result.Total),
			zap.Int("stored", result.Stored),
			zap.Int("duplicates", result.Duplicates))
	}

	return nil
}

// processBatch groups logs by block, stamps each group with its block time
// and runs every group through the pipeline in block order.
func (r *Runner) processBatch(ctx context.Context, logs []types.Log) (model.BatchResult, error) {
	var total model.BatchResult

	byBlock := make(map[uint64][]types.Log)
	blocks := make([]uint64, 0)
	for _, log := range logs {
		if _, ok := byBlock[log.BlockNumber]; !ok {
			blocks = append(blocks, log.BlockNumber)
		}
		byBlock[log.BlockNumber] = append(byBlock[log.BlockNumber], log)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, blockNumber := range blocks {
		blockTime, err := r.blockTimestampWithRetry(ctx, blockNumber)
		if err != nil {
			return total, fmt.Errorf("block timestamp %d: %w", blockNumber, err)
		}

		result := r.processor.ProcessEnvelope(ctx, buildEnvelope(blockTime, byBlock[blockNumber]))
		total.Total += result.Total
		total.Stored += result.Stored
		total.Duplicates += result.Duplicates
		total.UnknownToken += result.UnknownToken
		total.Failed += result.Failed
	}

	return total, nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (time.Time, error) {
	var ts time.Time
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		header, err := r.chain.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
		if err != nil {
			r.logger.Warn("block header fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
			return err
		}
		ts = time.Unix(int64(header.Time), 0).UTC()
		return nil
	})
	return ts, err
}
