package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wrapRelay/internal/model"
	"wrapRelay/internal/storage"
)

func sampleRecord(hash string, ts time.Time) *model.TransferRecord {
	return &model.TransferRecord{
		TransactionHash: hash,
		ContractAddress: "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238",
		Symbol:          "USDC",
		Decimals:        6,
		Sender:          "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Receiver:        "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Amount:          "5",
		Timestamp:       ts,
	}
}

func TestTransferStore_InsertIfAbsent(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()
	record := sampleRecord("0xhash1", time.Now().UTC())

	inserted, err := store.InsertIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert should report inserted")
	}

	inserted, err = store.InsertIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate insert should report not inserted")
	}

	exists, err := store.ExistsByHash(ctx, "0xhash1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected hash to exist")
	}

	exists, err = store.ExistsByHash(ctx, "0xother")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("unexpected hash reported as existing")
	}
}

func TestTransferStore_InsertInvalid(t *testing.T) {
	store := NewTransferStore()
	if _, err := store.InsertIfAbsent(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTransferStore_ListFilterAndPaging(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		record := sampleRecord(fmt.Sprintf("0xhash%d", i), base.Add(time.Duration(i)*time.Hour))
		if i == 4 {
			record.Symbol = "EURC"
		}
		if _, err := store.InsertIfAbsent(ctx, record); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	symbol := "USDC"
	page, err := store.List(ctx, storage.TransferFilter{Symbol: &symbol, Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("expected 4 USDC records, got %d", page.Total)
	}
	if len(page.Transfers) != 3 {
		t.Fatalf("expected page of 3, got %d", len(page.Transfers))
	}
	// Newest first.
	if page.Transfers[0].TransactionHash != "0xhash3" {
		t.Fatalf("order mismatch: %s", page.Transfers[0].TransactionHash)
	}

	page, err = store.List(ctx, storage.TransferFilter{Symbol: &symbol, Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Transfers) != 1 {
		t.Fatalf("expected remainder of 1, got %d", len(page.Transfers))
	}

	start := base.Add(90 * time.Minute)
	page, err = store.List(ctx, storage.TransferFilter{StartTime: &start, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list by time: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected 3 records from start time, got %d", page.Total)
	}
}

func TestTransferStore_LatestByContract(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		record := sampleRecord(fmt.Sprintf("0xhash%d", i), base.Add(time.Duration(i)*time.Minute))
		if _, err := store.InsertIfAbsent(ctx, record); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err := store.LatestByContract(ctx, "0x1C7D4B196CB0C7B01D743FBC6116A902379C7238")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.TransactionHash != "0xhash2" {
		t.Fatalf("expected newest record, got %s", latest.TransactionHash)
	}

	if _, err := store.LatestByContract(ctx, "0x08210f9170f89ab7658f0b5e3ff39b0e03c594d4"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
