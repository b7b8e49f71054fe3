package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	triggerToken = "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
	depositor    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

type submittedCall struct {
	method string
	to     common.Address
	amount *big.Int
}

// fakeSubmitter records the call sequence and can fail any step. A mint
// submitted while another deposit's mint to forward cycle is still open marks
// overlap, which the engine's wallet mutex must prevent.
type fakeSubmitter struct {
	wallet common.Address

	mu           sync.Mutex
	calls        []submittedCall
	nextTx       int
	sequenceOpen bool
	overlap      bool
	forwardTx    map[common.Hash]bool

	mintErr    error
	confirmErr map[common.Hash]error
	forwardErr error
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		wallet:     common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		forwardTx:  make(map[common.Hash]bool),
		confirmErr: make(map[common.Hash]error),
	}
}

func (f *fakeSubmitter) ServiceWallet() common.Address { return f.wallet }

func (f *fakeSubmitter) record(method string, to common.Address, amount *big.Int) common.Hash {
	f.calls = append(f.calls, submittedCall{method: method, to: to, amount: new(big.Int).Set(amount)})
	f.nextTx++
	return common.HexToHash(fmt.Sprintf("0x%064d", f.nextTx))
}

func (f *fakeSubmitter) SubmitMint(_ context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sequenceOpen {
		f.overlap = true
	}
	f.sequenceOpen = true
	if f.mintErr != nil {
		return common.Hash{}, f.mintErr
	}
	return f.record("mint", to, amount), nil
}

func (f *fakeSubmitter) SubmitForward(_ context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return common.Hash{}, f.forwardErr
	}
	hash := f.record("forward", to, amount)
	f.forwardTx[hash] = true
	return hash, nil
}

func (f *fakeSubmitter) AwaitConfirmation(_ context.Context, txHash common.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardTx[txHash] {
		f.sequenceOpen = false
	}
	return f.confirmErr[txHash]
}

func newTestEngine(t *testing.T, submitter *fakeSubmitter) *Engine {
	t.Helper()
	engine, err := NewEngine(submitter, Config{
		TriggerToken: triggerToken,
		MintDecimals: 18,
		Multiplier:   10,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func qualifyingDeposit(submitter *fakeSubmitter) Deposit {
	return Deposit{
		Contract: common.HexToAddress(triggerToken),
		Sender:   common.HexToAddress(depositor),
		Receiver: submitter.wallet,
		RawValue: big.NewInt(5_000_000),
		Decimals: 6,
	}
}

func TestSettleQualifyingDeposit(t *testing.T) {
	submitter := newFakeSubmitter()
	engine := newTestEngine(t, submitter)

	result, err := engine.Settle(context.Background(), qualifyingDeposit(submitter))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if result.State != StateSettled {
		t.Fatalf("state = %q, want %q", result.State, StateSettled)
	}
	if len(submitter.calls) != 2 {
		t.Fatalf("got %d chain calls, want 2", len(submitter.calls))
	}

	want, _ := new(big.Int).SetString("50000000000000000000", 10)

	mint := submitter.calls[0]
	if mint.method != "mint" {
		t.Fatalf("first call = %q, want mint", mint.method)
	}
	if mint.to != submitter.wallet {
		t.Errorf("mint recipient = %s, want service wallet", mint.to.Hex())
	}
	if mint.amount.Cmp(want) != 0 {
		t.Errorf("mint amount = %s, want %s", mint.amount, want)
	}

	forward := submitter.calls[1]
	if forward.method != "forward" {
		t.Fatalf("second call = %q, want forward", forward.method)
	}
	if forward.to != common.HexToAddress(depositor) {
		t.Errorf("forward recipient = %s, want depositor", forward.to.Hex())
	}
	if forward.amount.Cmp(mint.amount) != 0 {
		t.Errorf("forward amount %s differs from mint amount %s", forward.amount, mint.amount)
	}

	if result.MintTxHash == (common.Hash{}) || result.ForwardTxHash == (common.Hash{}) {
		t.Error("settled result must carry both transaction hashes")
	}
}

func TestSettleNotTriggered(t *testing.T) {
	submitter := newFakeSubmitter()
	engine := newTestEngine(t, submitter)

	base := qualifyingDeposit(submitter)

	otherReceiver := base
	otherReceiver.Receiver = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	otherContract := base
	otherContract.Contract = common.HexToAddress("0x08210f9170f89ab7658f0b5e3ff39b0e03c594d4")

	for name, dep := range map[string]Deposit{
		"receiver is not the service wallet": otherReceiver,
		"contract is not the trigger token":  otherContract,
	} {
		result, err := engine.Settle(context.Background(), dep)
		if err != nil {
			t.Fatalf("%s: Settle failed: %v", name, err)
		}
		if result.State != StateNotTriggered {
			t.Errorf("%s: state = %q, want %q", name, result.State, StateNotTriggered)
		}
	}
	if len(submitter.calls) != 0 {
		t.Fatalf("non-qualifying deposits made %d chain calls, want 0", len(submitter.calls))
	}
}

func TestSettleMintSubmissionFailure(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.mintErr = errors.New("rpc unavailable")
	engine := newTestEngine(t, submitter)

	result, err := engine.Settle(context.Background(), qualifyingDeposit(submitter))
	if err == nil {
		t.Fatal("expected error from failed mint submission")
	}
	if result.State != StateFailed {
		t.Fatalf("state = %q, want %q", result.State, StateFailed)
	}
	if len(submitter.calls) != 0 {
		t.Fatalf("failed mint still produced %d calls, want 0", len(submitter.calls))
	}
}

func TestSettleMintConfirmationFailureSkipsForward(t *testing.T) {
	submitter := newFakeSubmitter()
	mintHash := common.HexToHash(fmt.Sprintf("0x%064d", 1))
	submitter.confirmErr[mintHash] = errors.New("transaction reverted")
	engine := newTestEngine(t, submitter)

	result, err := engine.Settle(context.Background(), qualifyingDeposit(submitter))
	if err == nil {
		t.Fatal("expected error from failed mint confirmation")
	}
	if result.State != StateFailed {
		t.Fatalf("state = %q, want %q", result.State, StateFailed)
	}
	if result.MintTxHash != mintHash {
		t.Errorf("mint hash = %s, want %s", result.MintTxHash.Hex(), mintHash.Hex())
	}
	for _, call := range submitter.calls {
		if call.method == "forward" {
			t.Fatal("forward must never follow a failed mint")
		}
	}
}

func TestSettleForwardFailure(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.forwardErr = errors.New("nonce too low")
	engine := newTestEngine(t, submitter)

	result, err := engine.Settle(context.Background(), qualifyingDeposit(submitter))
	if err == nil {
		t.Fatal("expected error from failed forward submission")
	}
	if result.State != StateFailed {
		t.Fatalf("state = %q, want %q", result.State, StateFailed)
	}
	if result.MintTxHash == (common.Hash{}) {
		t.Error("failed forward should still report the confirmed mint hash")
	}
	if result.ForwardTxHash != (common.Hash{}) {
		t.Error("forward hash must be zero when submission failed")
	}
}

func TestSettleSerializesWalletAccess(t *testing.T) {
	submitter := newFakeSubmitter()
	engine := newTestEngine(t, submitter)
	dep := qualifyingDeposit(submitter)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Settle(context.Background(), dep); err != nil {
				t.Errorf("Settle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if submitter.overlap {
		t.Fatal("observed overlapping settlement calls against the wallet")
	}
	if len(submitter.calls) != 16 {
		t.Fatalf("got %d chain calls, want 16", len(submitter.calls))
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	submitter := newFakeSubmitter()

	if _, err := NewEngine(nil, Config{TriggerToken: triggerToken, Multiplier: 1}, nil); err == nil {
		t.Error("nil submitter accepted")
	}
	if _, err := NewEngine(submitter, Config{TriggerToken: "not-an-address", Multiplier: 1}, nil); err == nil {
		t.Error("invalid trigger address accepted")
	}
	if _, err := NewEngine(submitter, Config{TriggerToken: triggerToken, Multiplier: 0}, nil); err == nil {
		t.Error("zero multiplier accepted")
	}
}

func TestMintAmountRejectsPrecisionLoss(t *testing.T) {
	submitter := newFakeSubmitter()
	engine, err := NewEngine(submitter, Config{
		TriggerToken: triggerToken,
		MintDecimals: 6,
		Multiplier:   1,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	dep := qualifyingDeposit(submitter)
	dep.Decimals = 18
	if _, err := engine.MintAmount(dep); err == nil {
		t.Fatal("scaling 18 decimals down to 6 must fail")
	}
}
