package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"wrapRelay/internal/model"
	"wrapRelay/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore,
// used in tests and --use-memory runs.
type TransferStore struct {
	mu     sync.RWMutex
	data   []model.TransferRecord
	hashes map[string]bool
}

// NewTransferStore creates an empty in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{hashes: make(map[string]bool)}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertIfAbsent stores a copy of the record unless the hash exists.
func (s *TransferStore) InsertIfAbsent(_ context.Context, record *model.TransferRecord) (bool, error) {
	if record == nil || record.TransactionHash == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hashes[record.TransactionHash] {
		return false, nil
	}

	s.data = append(s.data, *record)
	s.hashes[record.TransactionHash] = true
	return true, nil
}

// ExistsByHash reports whether the hash has been recorded.
func (s *TransferStore) ExistsByHash(_ context.Context, transactionHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hashes[transactionHash], nil
}

// List returns a filtered page ordered by timestamp descending.
func (s *TransferStore) List(_ context.Context, filter storage.TransferFilter) (storage.TransferPage, error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)

	s.mu.RLock()
	matched := make([]model.TransferRecord, 0, len(s.data))
	for _, record := range s.data {
		if matches(record, filter) {
			matched = append(matched, record)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return storage.TransferPage{
		Transfers: matched[start:end],
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

// LatestByContract returns the newest record for a contract address.
func (s *TransferStore) LatestByContract(_ context.Context, contractAddress string) (*model.TransferRecord, error) {
	target := strings.ToLower(contractAddress)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.TransferRecord
	for i := range s.data {
		record := s.data[i]
		if strings.ToLower(record.ContractAddress) != target {
			continue
		}
		if latest == nil || record.Timestamp.After(latest.Timestamp) {
			copied := record
			latest = &copied
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

func matches(record model.TransferRecord, filter storage.TransferFilter) bool {
	if filter.Symbol != nil && record.Symbol != *filter.Symbol {
		return false
	}
	if filter.Sender != nil && !strings.EqualFold(record.Sender, *filter.Sender) {
		return false
	}
	if filter.Receiver != nil && !strings.EqualFold(record.Receiver, *filter.Receiver) {
		return false
	}
	if filter.StartTime != nil && record.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && record.Timestamp.After(*filter.EndTime) {
		return false
	}
	return true
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
