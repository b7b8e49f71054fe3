// Package pipeline turns webhook deliveries into durable transfer records
// and, when configured, settlement cycles. Entries within one delivery are
// processed strictly sequentially, in delivery order.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wrapRelay/internal/amount"
	"wrapRelay/internal/erc20"
	"wrapRelay/internal/model"
	"wrapRelay/internal/registry"
	"wrapRelay/internal/settlement"
	"wrapRelay/internal/storage"
)

// Processor runs one log entry at a time through the registry gate, dedup
// gate, decoder, normalizer, store and settlement engine. A nil engine
// disables settlement (backfill mode); a nil sink disables the audit stream.
type Processor struct {
	registry *registry.Registry
	store    storage.TransferStore
	engine   *settlement.Engine
	sink     *OutcomeSink
	logger   *zap.Logger
}

func NewProcessor(
	reg *registry.Registry,
	store storage.TransferStore,
	engine *settlement.Engine,
	sink *OutcomeSink,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		registry: reg,
		store:    store,
		engine:   engine,
		sink:     sink,
		logger:   logger,
	}
}

// ProcessEnvelope processes every entry of a delivery in order. One entry's
// failure never aborts its siblings; each entry yields exactly one outcome.
func (p *Processor) ProcessEnvelope(ctx context.Context, env *model.WebhookEnvelope) model.BatchResult {
	entries := env.Entries()
	result := model.BatchResult{
		Total:    len(entries),
		Outcomes: make([]model.EntryOutcome, 0, len(entries)),
	}

	for _, entry := range entries {
		outcome := p.processEntry(ctx, entry, env.CreatedAt)
		result.Outcomes = append(result.Outcomes, outcome)

		switch outcome.Status {
		case model.EntryStored:
			result.Stored++
		case model.EntryUnknownToken:
			result.UnknownToken++
		case model.EntryDuplicate:
			result.Duplicates++
		case model.EntryDecodeFailed, model.EntryPersistFailed:
			result.Failed++
		}
		if outcome.Settlement == string(settlement.StateSettled) {
			result.Settled++
		}
	}

	if p.sink != nil {
		if err := p.sink.Append(result.Outcomes); err != nil {
			p.logger.Warn("failed to append outcomes", zap.Error(err))
		}
	}

	p.logger.Info("processed delivery",
		zap.String("webhookId", env.WebhookID),
		zap.Int("total", result.Total),
		zap.Int("stored", result.Stored),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("unknownToken", result.UnknownToken),
		zap.Int("failed", result.Failed),
		zap.Int("settled", result.Settled))

	return result
}

func (p *Processor) processEntry(ctx context.Context, entry model.LogEntry, createdAt time.Time) model.EntryOutcome {
	outcome := model.EntryOutcome{
		TxHash:          entry.TxHash,
		ContractAddress: entry.ContractAddress,
		ProcessedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}

	token, ok := p.registry.Resolve(entry.ContractAddress)
	if !ok {
		outcome.Status = model.EntryUnknownToken
		return outcome
	}
	outcome.Symbol = token.Symbol

	exists, err := p.store.ExistsByHash(ctx, entry.TxHash)
	if err != nil {
		outcome.Status = model.EntryPersistFailed
		outcome.Error = err.Error()
		p.logger.Error("dedup check failed",
			zap.String("txHash", entry.TxHash),
			zap.Error(err))
		return outcome
	}
	if exists {
		outcome.Status = model.EntryDuplicate
		return outcome
	}

	event, err := erc20.DecodeTransfer(entry.Topics, entry.Data)
	if err != nil {
		outcome.Status = model.EntryDecodeFailed
		outcome.Error = err.Error()
		p.logger.Warn("skipping undecodable log",
			zap.String("txHash", entry.TxHash),
			zap.String("contract", entry.ContractAddress),
			zap.Error(err))
		return outcome
	}

	record := &model.TransferRecord{
		TransactionHash: entry.TxHash,
		ContractAddress: token.Address,
		Symbol:          token.Symbol,
		Decimals:        token.Decimals,
		Sender:          strings.ToLower(event.From.Hex()),
		Receiver:        strings.ToLower(event.To.Hex()),
		Amount:          amount.FormatUnits(event.Value, token.Decimals),
		Timestamp:       createdAt,
	}
	outcome.Amount = record.Amount

	inserted, err := p.store.InsertIfAbsent(ctx, record)
	if err != nil {
		outcome.Status = model.EntryPersistFailed
		outcome.Error = err.Error()
		p.logger.Error("failed to persist transfer",
			zap.String("txHash", entry.TxHash),
			zap.Error(err))
		return outcome
	}
	if !inserted {
		// Lost the insert race to a concurrent delivery. Same terminal
		// condition as the dedup gate.
		outcome.Status = model.EntryDuplicate
		return outcome
	}
	outcome.Status = model.EntryStored

	if p.engine == nil {
		return outcome
	}

	settled, err := p.engine.Settle(ctx, settlement.Deposit{
		Contract: common.HexToAddress(token.Address),
		Sender:   event.From,
		Receiver: event.To,
		RawValue: event.Value,
		Decimals: token.Decimals,
	})
	outcome.Settlement = string(settled.State)
	if settled.MintTxHash != (common.Hash{}) {
		outcome.MintTxHash = settled.MintTxHash.Hex()
	}
	if settled.ForwardTxHash != (common.Hash{}) {
		outcome.ForwardTxHash = settled.ForwardTxHash.Hex()
	}
	if err != nil {
		// The transfer record is already durable; the failed settlement is
		// terminal for this entry and not retried.
		outcome.Error = err.Error()
	}

	return outcome
}
