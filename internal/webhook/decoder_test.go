package webhook

import (
	"errors"
	"testing"
)

const validPayload = `{
  "webhookId": "wh_123",
  "id": "evt_1",
  "createdAt": "2024-05-01T12:00:00Z",
  "type": "GRAPHQL",
  "event": {
    "data": {
      "block": {
        "logs": [
          {
            "account": {"address": "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"},
            "topics": [
              "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
              "0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
              "0x000000000000000000000000bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
            ],
            "data": "0x00000000000000000000000000000000000000000000000000000000004c4b40",
            "transaction": {
              "hash": "0x1111111111111111111111111111111111111111111111111111111111111111",
              "from": {"address": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
              "to": {"address": "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"},
              "status": 1
            }
          }
        ]
      }
    }
  },
  "sequenceNumber": "10000",
  "network": "ETH_SEPOLIA"
}`

func TestParseEnvelope(t *testing.T) {
	envelope, err := ParseEnvelope([]byte(validPayload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	entries := envelope.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ContractAddress != "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238" {
		t.Fatalf("contract address mismatch: %s", entry.ContractAddress)
	}
	if entry.TxHash != "0x1111111111111111111111111111111111111111111111111111111111111111" {
		t.Fatalf("tx hash mismatch: %s", entry.TxHash)
	}
	if len(entry.Topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(entry.Topics))
	}
	if entry.TxFrom != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("tx from mismatch: %s", entry.TxFrom)
	}
	if entry.TxStatus != "1" {
		t.Fatalf("tx status mismatch: %s", entry.TxStatus)
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":       `{"createdAt": `,
		"missing createdAt":  `{"event": {"data": {"block": {"logs": []}}}}`,
		"missing block":      `{"createdAt": "2024-05-01T12:00:00Z", "event": {"data": {}}}`,
		"log missing hash":   `{"createdAt": "2024-05-01T12:00:00Z", "event": {"data": {"block": {"logs": [{"account": {"address": "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"}, "transaction": {}}]}}}}`,
		"log missing source": `{"createdAt": "2024-05-01T12:00:00Z", "event": {"data": {"block": {"logs": [{"account": {}, "transaction": {"hash": "0xabc"}}]}}}}`,
	}

	for name, payload := range cases {
		if _, err := ParseEnvelope([]byte(payload)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("%s: expected ErrMalformedPayload, got %v", name, err)
		}
	}
}

func TestParseEnvelopeEmptyBatch(t *testing.T) {
	payload := `{"createdAt": "2024-05-01T12:00:00Z", "event": {"data": {"block": {"logs": []}}}}`
	envelope, err := ParseEnvelope([]byte(payload))
	if err != nil {
		t.Fatalf("empty batch should parse: %v", err)
	}
	if len(envelope.Entries()) != 0 {
		t.Fatalf("expected no entries")
	}
}

func TestParseEnvelopeMissingLogDataIsNotBatchFailure(t *testing.T) {
	payload := `{"createdAt": "2024-05-01T12:00:00Z", "event": {"data": {"block": {"logs": [
	  {"account": {"address": "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"},
	   "transaction": {"hash": "0x2222222222222222222222222222222222222222222222222222222222222222"}}
	]}}}}`
	envelope, err := ParseEnvelope([]byte(payload))
	if err != nil {
		t.Fatalf("missing per-log data must not fail the batch: %v", err)
	}
	if len(envelope.Entries()) != 1 {
		t.Fatalf("expected 1 entry")
	}
}
