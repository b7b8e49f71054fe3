package model

import "time"

// TransferRecord is the durable, append-only record of one observed ERC-20
// transfer. TransactionHash is the unique key; a record is never mutated
// after insert.
type TransferRecord struct {
	TransactionHash string    `json:"transactionHash"`
	ContractAddress string    `json:"contractAddress"`
	Symbol          string    `json:"symbol"`
	Decimals        uint8     `json:"decimals"`
	Sender          string    `json:"sender"`
	Receiver        string    `json:"receiver"`
	Amount          string    `json:"amount"`
	Timestamp       time.Time `json:"timestamp"`
}
