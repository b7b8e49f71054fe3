// Package history serves the read side: paginated transfer history and token
// metadata. It never writes; ingestion owns the write path.
package history

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wrapRelay/internal/amount"
	"wrapRelay/internal/model"
	"wrapRelay/internal/storage"
)

// SupplyReader is the chain read needed for metadata. Satisfied by
// chain.Client.
type SupplyReader interface {
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
}

// Page is one page of transfer history, newest first.
type Page struct {
	Transactions []model.TransferRecord `json:"transactions"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	Limit        int                    `json:"limit"`
	TotalPages   int64                  `json:"totalPages"`
}

// TokenMetadata combines stored token facts with the live total supply.
type TokenMetadata struct {
	ContractAddress string `json:"contractAddress"`
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
	TotalSupply     string `json:"totalSupply,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Service answers history queries from the store and the chain.
type Service struct {
	store  storage.TransferStore
	supply SupplyReader
	logger *zap.Logger
}

func NewService(store storage.TransferStore, supply SupplyReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, supply: supply, logger: logger}
}

// TransactionHistory returns a filtered, paginated transfer page.
func (s *Service) TransactionHistory(ctx context.Context, filter storage.TransferFilter) (Page, error) {
	result, err := s.store.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	var totalPages int64
	if result.Limit > 0 {
		totalPages = (result.Total + int64(result.Limit) - 1) / int64(result.Limit)
	}

	transactions := result.Transfers
	if transactions == nil {
		transactions = []model.TransferRecord{}
	}

	return Page{
		Transactions: transactions,
		Total:        result.Total,
		Page:         result.Page,
		Limit:        result.Limit,
		TotalPages:   totalPages,
	}, nil
}

// TokenMetadata returns symbol and decimals from the latest stored record for
// the contract, plus the live total supply. A chain failure degrades to
// partial metadata with a note rather than an error; an unknown contract is
// storage.ErrNotFound.
func (s *Service) TokenMetadata(ctx context.Context, contractAddress string) (TokenMetadata, error) {
	if !common.IsHexAddress(contractAddress) {
		return TokenMetadata{}, storage.ErrInvalidInput
	}

	latest, err := s.store.LatestByContract(ctx, contractAddress)
	if err != nil {
		return TokenMetadata{}, err
	}

	meta := TokenMetadata{
		ContractAddress: latest.ContractAddress,
		Symbol:          latest.Symbol,
		Decimals:        latest.Decimals,
	}

	supply, err := s.supply.TotalSupply(ctx, common.HexToAddress(latest.ContractAddress))
	if err != nil {
		s.logger.Warn("total supply lookup failed",
			zap.String("contract", latest.ContractAddress),
			zap.Error(err))
		meta.Note = "total supply unavailable"
		return meta, nil
	}
	meta.TotalSupply = amount.FormatUnits(supply, latest.Decimals)

	return meta, nil
}
