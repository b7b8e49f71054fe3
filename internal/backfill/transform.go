package backfill

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"wrapRelay/internal/model"
)

// buildEnvelope shapes one block's historical logs like a live delivery, so
// the pipeline treats backfilled and webhook-delivered transfers identically.
func buildEnvelope(blockTime time.Time, logs []types.Log) *model.WebhookEnvelope {
	webhookLogs := make([]model.WebhookLog, 0, len(logs))
	for _, log := range logs {
		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, topic.Hex())
		}
		webhookLogs = append(webhookLogs, model.WebhookLog{
			Account: model.AddressRef{Address: log.Address.Hex()},
			Topics:  topics,
			Data:    hexutil.Encode(log.Data),
			Transaction: model.TransactionRef{
				Hash:   log.TxHash.Hex(),
				Status: "1",
			},
		})
	}

	return &model.WebhookEnvelope{
		WebhookID: "backfill",
		Type:      "BACKFILL",
		CreatedAt: blockTime,
		Event: model.EventPayload{
			Data: model.EventData{Block: &model.BlockData{Logs: webhookLogs}},
		},
	}
}
