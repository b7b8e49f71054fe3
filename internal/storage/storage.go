package storage

import (
	"context"
	"time"

	"wrapRelay/internal/model"
)

// TransferFilter narrows a history query. Optional fields are explicit
// pointers; no dynamic clause maps are built from request input.
type TransferFilter struct {
	Symbol    *string
	Sender    *string
	Receiver  *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// TransferPage is one page of a history query, newest first.
type TransferPage struct {
	Transfers []model.TransferRecord
	Total     int64
	Page      int
	Limit     int
}

// TransferStore persists transfer records. The uniqueness of
// TransactionHash is enforced here, at the storage layer, not only by the
// pipeline's dedup gate: concurrent duplicate deliveries can race past the
// gate, and the losing insert must resolve to a no-op.
type TransferStore interface {
	// InsertIfAbsent writes a record unless its transaction hash already
	// exists. A duplicate is not an error: it returns (false, nil).
	InsertIfAbsent(ctx context.Context, record *model.TransferRecord) (inserted bool, err error)

	// ExistsByHash reports whether a transaction hash has been recorded.
	ExistsByHash(ctx context.Context, transactionHash string) (bool, error)

	// List returns a filtered, paginated page of transfers ordered by
	// timestamp descending.
	List(ctx context.Context, filter TransferFilter) (TransferPage, error)

	// LatestByContract returns the most recent record for a contract
	// address, or ErrNotFound.
	LatestByContract(ctx context.Context, contractAddress string) (*model.TransferRecord, error)
}
