package model

// EntryStatus classifies the pipeline result for one log entry.
type EntryStatus string

const (
	// EntryStored means the transfer was decoded and persisted.
	EntryStored EntryStatus = "stored"
	// EntryUnknownToken means the contract is not in the token registry.
	EntryUnknownToken EntryStatus = "unknown_token"
	// EntryDuplicate means the transaction hash was already recorded.
	EntryDuplicate EntryStatus = "duplicate"
	// EntryDecodeFailed means the log could not be decoded as a Transfer event.
	EntryDecodeFailed EntryStatus = "decode_failed"
	// EntryPersistFailed means the store write failed for a non-duplicate reason.
	EntryPersistFailed EntryStatus = "persist_failed"
)

// EntryOutcome is the structured per-entry result emitted to the outcome
// stream. It is the operational record of what actually happened, independent
// of the always-200 HTTP response.
type EntryOutcome struct {
	TxHash          string      `json:"tx_hash"`
	ContractAddress string      `json:"contract_address,omitempty"`
	Symbol          string      `json:"symbol,omitempty"`
	Amount          string      `json:"amount,omitempty"`
	Status          EntryStatus `json:"status"`
	Settlement      string      `json:"settlement,omitempty"`
	MintTxHash      string      `json:"mint_tx_hash,omitempty"`
	ForwardTxHash   string      `json:"forward_tx_hash,omitempty"`
	Error           string      `json:"error,omitempty"`
	ProcessedAt     string      `json:"processed_at"`
}

// BatchResult summarizes one delivery's processing.
type BatchResult struct {
	Total        int
	Stored       int
	UnknownToken int
	Duplicates   int
	Failed       int
	Settled      int
	Outcomes     []EntryOutcome
}
