package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"wrapRelay/internal/erc20"
)

// DefaultReceiptPollInterval is how often AwaitConfirmation polls for a
// transaction receipt.
const DefaultReceiptPollInterval = 2 * time.Second

// Config holds the chain client's connection and signing settings.
type Config struct {
	// RPCURL serves reads: receipts, logs, contract calls.
	RPCURL string
	// TxRPCURL serves transaction submission. Empty means RPCURL.
	TxRPCURL string
	// PrivateKeyHex is the service wallet key, with or without 0x prefix.
	PrivateKeyHex string
	// MintToken is the contract the settlement mint and forward calls target.
	MintToken string
	// ReceiptPollInterval overrides the receipt polling cadence.
	ReceiptPollInterval time.Duration
}

// Client wraps go-ethereum RPC access and the service wallet. It is the
// process's single transaction-submission capability; callers serialize
// submissions themselves (nonce assignment is not safe under concurrent
// Transact calls).
type Client struct {
	readClient   *ethclient.Client
	txClient     *ethclient.Client
	mintContract *bind.BoundContract
	auth         *bind.TransactOpts
	wallet       common.Address
	tokenABI     abi.ABI
	pollInterval time.Duration
}

// NewReadClient connects a single RPC endpoint for reads only. Submitting
// transactions through it fails.
func NewReadClient(ctx context.Context, rpcURL string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	readClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	tokenABI, err := erc20.TokenABI()
	if err != nil {
		readClient.Close()
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	return &Client{
		readClient:   readClient,
		txClient:     readClient,
		tokenABI:     tokenABI,
		pollInterval: DefaultReceiptPollInterval,
	}, nil
}

// NewClient connects both RPC endpoints and derives the service wallet from
// the configured private key.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	if !common.IsHexAddress(cfg.MintToken) {
		return nil, fmt.Errorf("invalid mint token address: %s", cfg.MintToken)
	}

	readClient, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	txClient := readClient
	if cfg.TxRPCURL != "" && cfg.TxRPCURL != cfg.RPCURL {
		txClient, err = ethclient.DialContext(ctx, cfg.TxRPCURL)
		if err != nil {
			readClient.Close()
			return nil, fmt.Errorf("dial tx rpc: %w", err)
		}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		readClient.Close()
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID, err := readClient.ChainID(ctx)
	if err != nil {
		readClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		readClient.Close()
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	tokenABI, err := erc20.TokenABI()
	if err != nil {
		readClient.Close()
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultReceiptPollInterval
	}

	mintToken := common.HexToAddress(cfg.MintToken)

	return &Client{
		readClient:   readClient,
		txClient:     txClient,
		mintContract: bind.NewBoundContract(mintToken, tokenABI, readClient, txClient, readClient),
		auth:         auth,
		wallet:       crypto.PubkeyToAddress(key.PublicKey),
		tokenABI:     tokenABI,
		pollInterval: pollInterval,
	}, nil
}

// Close closes the underlying RPC clients.
func (c *Client) Close() {
	if c.txClient != nil && c.txClient != c.readClient {
		c.txClient.Close()
	}
	if c.readClient != nil {
		c.readClient.Close()
	}
}

// ServiceWallet returns the address derived from the signing key.
func (c *Client) ServiceWallet() common.Address {
	return c.wallet
}

// SubmitMint issues a mint(to, amount) transaction on the mint token.
func (c *Client) SubmitMint(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	return c.transact(ctx, "mint", to, amount)
}

// SubmitForward issues a transfer(to, amount) transaction on the mint token.
func (c *Client) SubmitForward(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	return c.transact(ctx, "transfer", to, amount)
}

func (c *Client) transact(ctx context.Context, method string, to common.Address, amount *big.Int) (common.Hash, error) {
	if c.auth == nil || c.mintContract == nil {
		return common.Hash{}, fmt.Errorf("client has no signing key")
	}

	opts := *c.auth
	opts.Context = ctx

	tx, err := c.mintContract.Transact(&opts, method, to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit %s: %w", method, err)
	}
	return tx.Hash(), nil
}

// AwaitConfirmation polls until the transaction's receipt is available and
// checks its status. Polling is bounded only by ctx.
func (c *Client) AwaitConfirmation(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.readClient.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		if err != ethereum.NotFound {
			return fmt.Errorf("get receipt %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// TotalSupply calls totalSupply() on a token contract.
func (c *Client) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := c.tokenABI.Pack("totalSupply")
	if err != nil {
		return nil, fmt.Errorf("pack totalSupply: %w", err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := c.readClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call totalSupply: %w", err)
	}

	values, err := c.tokenABI.Unpack("totalSupply", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack totalSupply: %w", err)
	}
	supply, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported totalSupply type %T", values[0])
	}
	return supply, nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.readClient.BlockNumber(ctx)
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.readClient.FilterLogs(ctx, query)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.readClient.HeaderByNumber(ctx, number)
}
