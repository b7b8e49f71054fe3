package postgres

import (
	"context"
	"fmt"
	"strings"

	"wrapRelay/internal/model"
	"wrapRelay/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL. The
// transaction_hash primary key is the authoritative uniqueness constraint;
// a duplicate insert resolves atomically to a no-op via ON CONFLICT.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const transferColumns = `transaction_hash, contract_address, symbol, decimals, sender, receiver, amount, timestamp`

// InsertIfAbsent writes the record unless its hash exists. Losing a race to
// a concurrent duplicate returns (false, nil), not an error.
func (s *TransferStore) InsertIfAbsent(ctx context.Context, record *model.TransferRecord) (bool, error) {
	if record == nil || record.TransactionHash == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO transfers (
			transaction_hash, contract_address, symbol, decimals, sender, receiver, amount, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_hash) DO NOTHING
	`,
		record.TransactionHash,
		record.ContractAddress,
		record.Symbol,
		int16(record.Decimals),
		record.Sender,
		record.Receiver,
		record.Amount,
		record.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert transfer: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ExistsByHash reports whether a transaction hash has been recorded.
func (s *TransferStore) ExistsByHash(ctx context.Context, transactionHash string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transfers WHERE transaction_hash = $1)`, transactionHash)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by hash: %w", err)
	}
	return exists, nil
}

// List returns a filtered page ordered by timestamp descending.
func (s *TransferStore) List(ctx context.Context, filter storage.TransferFilter) (storage.TransferPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	where, args := buildTransferWhere(filter)

	var total int64
	countQuery := `SELECT count(*) FROM transfers` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return storage.TransferPage{}, fmt.Errorf("count transfers: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM transfers%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		transferColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return storage.TransferPage{}, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]model.TransferRecord, 0, limit)
	for rows.Next() {
		record, err := scanTransfer(rows)
		if err != nil {
			return storage.TransferPage{}, err
		}
		transfers = append(transfers, record)
	}
	if err := rows.Err(); err != nil {
		return storage.TransferPage{}, fmt.Errorf("iterate transfers: %w", err)
	}

	return storage.TransferPage{
		Transfers: transfers,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

// LatestByContract returns the newest record for a contract address.
func (s *TransferStore) LatestByContract(ctx context.Context, contractAddress string) (*model.TransferRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM transfers WHERE contract_address = $1 ORDER BY timestamp DESC LIMIT 1`,
		transferColumns,
	)
	row := s.pool.QueryRow(ctx, query, strings.ToLower(contractAddress))

	record, err := scanTransfer(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("latest by contract: %w", err)
	}
	return &record, nil
}

// buildTransferWhere assembles the WHERE clause from the explicit filter
// fields, one predicate per set field.
func buildTransferWhere(filter storage.TransferFilter) (string, []interface{}) {
	clauses := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Symbol != nil {
		add("symbol = $%d", *filter.Symbol)
	}
	if filter.Sender != nil {
		add("sender = $%d", strings.ToLower(*filter.Sender))
	}
	if filter.Receiver != nil {
		add("receiver = $%d", strings.ToLower(*filter.Receiver))
	}
	if filter.StartTime != nil {
		add("timestamp >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp <= $%d", *filter.EndTime)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (model.TransferRecord, error) {
	var record model.TransferRecord
	var decimals int16
	if err := row.Scan(
		&record.TransactionHash,
		&record.ContractAddress,
		&record.Symbol,
		&decimals,
		&record.Sender,
		&record.Receiver,
		&record.Amount,
		&record.Timestamp,
	); err != nil {
		return model.TransferRecord{}, err
	}
	record.Decimals = uint8(decimals)
	return record, nil
}
