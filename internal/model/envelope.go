package model

import (
	"encoding/json"
	"time"
)

// WebhookEnvelope is one webhook delivery: a block's worth of logs plus
// delivery metadata. It lives only for the duration of a single processing
// pass.
type WebhookEnvelope struct {
	WebhookID      string       `json:"webhookId"`
	ID             string       `json:"id"`
	CreatedAt      time.Time    `json:"createdAt"`
	Type           string       `json:"type"`
	Event          EventPayload `json:"event"`
	SequenceNumber string       `json:"sequenceNumber"`
	Network        string       `json:"network"`
}

// EventPayload wraps the block data of a delivery.
type EventPayload struct {
	Data EventData `json:"data"`
}

// EventData holds the block the delivery refers to.
type EventData struct {
	Block *BlockData `json:"block"`
}

// BlockData carries the ordered log list of one block.
type BlockData struct {
	Logs []WebhookLog `json:"logs"`
}

// WebhookLog is one raw log as delivered, with its nested account and
// transaction sub-structures.
type WebhookLog struct {
	Account     AddressRef     `json:"account"`
	Topics      []string       `json:"topics"`
	Data        string         `json:"data"`
	Transaction TransactionRef `json:"transaction"`
}

// AddressRef wraps a single address field.
type AddressRef struct {
	Address string `json:"address"`
}

// TransactionRef identifies the transaction a log was emitted in.
type TransactionRef struct {
	Hash   string      `json:"hash"`
	From   AddressRef  `json:"from"`
	To     AddressRef  `json:"to"`
	Status json.Number `json:"status"`
}

// LogEntry is the flattened, in-order unit the pipeline processes.
type LogEntry struct {
	ContractAddress string   `json:"contract_address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	TxHash          string   `json:"tx_hash"`
	TxFrom          string   `json:"tx_from"`
	TxTo            string   `json:"tx_to"`
	TxStatus        string   `json:"tx_status"`
}

// Entries flattens the envelope's logs into pipeline entries, preserving
// delivery order.
func (e *WebhookEnvelope) Entries() []LogEntry {
	if e.Event.Data.Block == nil {
		return nil
	}
	entries := make([]LogEntry, 0, len(e.Event.Data.Block.Logs))
	for _, log := range e.Event.Data.Block.Logs {
		entries = append(entries, LogEntry{
			ContractAddress: log.Account.Address,
			Topics:          log.Topics,
			Data:            log.Data,
			TxHash:          log.Transaction.Hash,
			TxFrom:          log.Transaction.From.Address,
			TxTo:            log.Transaction.To.Address,
			TxStatus:        log.Transaction.Status.String(),
		})
	}
	return entries
}
