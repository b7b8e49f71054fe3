package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"wrapRelay/internal/model"
)

// ErrMalformedPayload marks a structurally invalid delivery. It rejects the
// whole batch before any per-log work; callers match it with errors.Is.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// ParseEnvelope decodes one webhook delivery and validates its structurally
// required fields. Per-log payload problems (missing data, bad topics) are
// deliberately not checked here: the event decoder isolates those to the
// single entry.
func ParseEnvelope(body []byte) (*model.WebhookEnvelope, error) {
	var envelope model.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if envelope.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing createdAt", ErrMalformedPayload)
	}
	if envelope.Event.Data.Block == nil {
		return nil, fmt.Errorf("%w: missing event.data.block", ErrMalformedPayload)
	}

	for i, log := range envelope.Event.Data.Block.Logs {
		if log.Account.Address == "" {
			return nil, fmt.Errorf("%w: log %d missing account address", ErrMalformedPayload, i)
		}
		if log.Transaction.Hash == "" {
			return nil, fmt.Errorf("%w: log %d missing transaction hash", ErrMalformedPayload, i)
		}
	}

	return &envelope, nil
}
