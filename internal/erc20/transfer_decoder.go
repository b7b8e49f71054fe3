package erc20

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TransferEvent is a decoded Transfer(address,address,uint256) log.
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// TransferTopic0 returns the Transfer event signature hash.
func TransferTopic0() (common.Hash, error) {
	eventABI, err := TransferEventABI()
	if err != nil {
		return common.Hash{}, err
	}
	return eventABI.Events["Transfer"].ID, nil
}

// DecodeTransfer decodes a log's topics and data against the canonical
// Transfer event signature. Any failure is isolated to the log being decoded;
// the caller skips the entry and continues.
func DecodeTransfer(topics []string, data string) (TransferEvent, error) {
	eventABI, err := TransferEventABI()
	if err != nil {
		return TransferEvent{}, fmt.Errorf("parse transfer abi: %w", err)
	}
	event := eventABI.Events["Transfer"]

	if len(topics) == 0 {
		return TransferEvent{}, fmt.Errorf("missing topics")
	}
	if !strings.EqualFold(topics[0], event.ID.Hex()) {
		return TransferEvent{}, fmt.Errorf("unexpected topic0: %s", topics[0])
	}

	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return TransferEvent{}, err
	}

	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return TransferEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, data)
	if err != nil {
		return TransferEvent{}, err
	}
	if len(values) != 1 {
		return TransferEvent{}, fmt.Errorf("unexpected transfer values: %d", len(values))
	}

	value, ok := values[0].(*big.Int)
	if !ok {
		return TransferEvent{}, fmt.Errorf("unsupported value type %T", values[0])
	}
	if value.Sign() < 0 {
		return TransferEvent{}, fmt.Errorf("negative transfer value: %s", value)
	}

	return TransferEvent{
		From:  indexed.From,
		To:    indexed.To,
		Value: new(big.Int).Set(value),
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
