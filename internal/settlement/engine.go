package settlement

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wrapRelay/internal/amount"
)

// State tracks a deposit's progress through the mint and forward sequence.
type State string

const (
	// StateNotTriggered is both the initial state and the terminal state for
	// deposits that do not match the trigger condition.
	StateNotTriggered State = "not_triggered"
	// StateMintPending means the mint transaction has been submitted.
	StateMintPending State = "mint_pending"
	// StateMintConfirmed means the mint receipt was observed with success status.
	StateMintConfirmed State = "mint_confirmed"
	// StateForwardSubmitted means the forward transaction has been submitted.
	StateForwardSubmitted State = "forward_submitted"
	// StateSettled is the terminal success state.
	StateSettled State = "settled"
	// StateFailed is terminal. Reached from mint_pending or forward_submitted;
	// there is no retry and no compensation.
	StateFailed State = "failed"
)

// Submitter is the on-chain transaction boundary. Connection management,
// signing and transient-failure handling live behind it.
type Submitter interface {
	ServiceWallet() common.Address
	SubmitMint(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	SubmitForward(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	AwaitConfirmation(ctx context.Context, txHash common.Hash) error
}

// Config describes the trigger condition and the mint amount computation.
type Config struct {
	// TriggerToken is the deposit contract that qualifies for settlement.
	TriggerToken string
	// MintDecimals is the minted token's decimal precision. Must be greater
	// than or equal to every trigger deposit's source decimals.
	MintDecimals uint8
	// Multiplier is the integer factor applied after decimal scaling.
	Multiplier int64
}

// Deposit is one decoded transfer presented for settlement evaluation.
type Deposit struct {
	Contract common.Address
	Sender   common.Address
	Receiver common.Address
	RawValue *big.Int
	Decimals uint8
}

// Result reports the terminal settlement state and the transaction hashes
// observed along the way. Hashes are zero when the corresponding call was
// never submitted.
type Result struct {
	State         State
	MintTxHash    common.Hash
	ForwardTxHash common.Hash
}

// Engine evaluates deposits against the trigger condition and drives the
// sequential mint then forward cycle. The wallet mutex is process wide: no
// two settlements ever overlap, regardless of which delivery triggered them.
type Engine struct {
	submitter  Submitter
	trigger    common.Address
	decimals   uint8
	multiplier *big.Int
	logger     *zap.Logger

	walletMu sync.Mutex
}

// NewEngine validates the configuration and builds an engine.
func NewEngine(submitter Submitter, cfg Config, logger *zap.Logger) (*Engine, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if !common.IsHexAddress(cfg.TriggerToken) {
		return nil, fmt.Errorf("invalid trigger token address: %s", cfg.TriggerToken)
	}
	if cfg.Multiplier < 1 {
		return nil, fmt.Errorf("multiplier must be at least 1, got %d", cfg.Multiplier)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		submitter:  submitter,
		trigger:    common.HexToAddress(cfg.TriggerToken),
		decimals:   cfg.MintDecimals,
		multiplier: big.NewInt(cfg.Multiplier),
		logger:     logger,
	}, nil
}

// Triggered reports whether the deposit matches the settlement condition:
// the trigger contract, received by the service wallet.
func (e *Engine) Triggered(dep Deposit) bool {
	return dep.Contract == e.trigger && dep.Receiver == e.submitter.ServiceWallet()
}

// MintAmount scales the raw deposit value to the minted token's precision and
// applies the multiplier. Exact integer arithmetic throughout.
func (e *Engine) MintAmount(dep Deposit) (*big.Int, error) {
	scaled, err := amount.ScaleDecimals(dep.RawValue, dep.Decimals, e.decimals)
	if err != nil {
		return nil, err
	}
	return scaled.Mul(scaled, e.multiplier), nil
}

// Settle runs the full settlement cycle for one deposit. Non-qualifying
// deposits return not_triggered without touching the chain. The returned
// error is non-nil exactly when the result state is failed; the deposit's
// transfer record is already durable either way.
func (e *Engine) Settle(ctx context.Context, dep Deposit) (Result, error) {
	if !e.Triggered(dep) {
		return Result{State: StateNotTriggered}, nil
	}

	mintAmount, err := e.MintAmount(dep)
	if err != nil {
		e.logger.Error("settlement amount computation failed",
			zap.String("sender", dep.Sender.Hex()),
			zap.String("rawValue", dep.RawValue.String()),
			zap.Error(err))
		return Result{State: StateFailed}, fmt.Errorf("compute mint amount: %w", err)
	}

	wallet := e.submitter.ServiceWallet()

	// Held for the whole mint, confirm, forward sequence so a single signing
	// wallet never has two in-flight transactions.
	e.walletMu.Lock()
	defer e.walletMu.Unlock()

	e.logger.Info("settlement triggered",
		zap.String("sender", dep.Sender.Hex()),
		zap.String("mintAmount", mintAmount.String()))

	result := Result{State: StateMintPending}

	mintHash, err := e.submitter.SubmitMint(ctx, wallet, mintAmount)
	if err != nil {
		result.State = StateFailed
		e.logger.Error("mint submission failed",
			zap.String("sender", dep.Sender.Hex()),
			zap.Error(err))
		return result, fmt.Errorf("submit mint: %w", err)
	}
	result.MintTxHash = mintHash

	if err := e.submitter.AwaitConfirmation(ctx, mintHash); err != nil {
		result.State = StateFailed
		e.logger.Error("mint confirmation failed",
			zap.String("mintTxHash", mintHash.Hex()),
			zap.Error(err))
		return result, fmt.Errorf("confirm mint %s: %w", mintHash.Hex(), err)
	}
	result.State = StateMintConfirmed

	forwardHash, err := e.submitter.SubmitForward(ctx, dep.Sender, mintAmount)
	if err != nil {
		result.State = StateFailed
		e.logger.Error("forward submission failed",
			zap.String("mintTxHash", mintHash.Hex()),
			zap.String("sender", dep.Sender.Hex()),
			zap.Error(err))
		return result, fmt.Errorf("submit forward: %w", err)
	}
	result.State = StateForwardSubmitted
	result.ForwardTxHash = forwardHash

	if err := e.submitter.AwaitConfirmation(ctx, forwardHash); err != nil {
		result.State = StateFailed
		e.logger.Error("forward confirmation failed",
			zap.String("forwardTxHash", forwardHash.Hex()),
			zap.Error(err))
		return result, fmt.Errorf("confirm forward %s: %w", forwardHash.Hex(), err)
	}
	result.State = StateSettled

	e.logger.Info("settlement complete",
		zap.String("mintTxHash", mintHash.Hex()),
		zap.String("forwardTxHash", forwardHash.Hex()),
		zap.String("recipient", dep.Sender.Hex()))

	return result, nil
}
