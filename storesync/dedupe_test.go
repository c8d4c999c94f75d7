package storesync

import (
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

// DB-free: the dedupe decision takes the SETNX primitive as an argument, so
// at-least-once delivery semantics are verified against an in-memory fake.

func fakeSeen() (func(*config.StoreChangeMessage) (bool, error), map[string]bool) {
	seen := map[string]bool{}
	return func(msg *config.StoreChangeMessage) (bool, error) {
		if seen[msg.ClientTxnId] {
			return false, nil
		}
		seen[msg.ClientTxnId] = true
		return true, nil
	}, seen
}

func ledgerChange(txnId string, title, amount string, occurred time.Time) *config.StoreChangeMessage {
	row, _ := json.Marshal(models.LedgerItem{
		Title:  title,
		Amount: decimal.RequireFromString(amount),
		Date:   occurred.Format("2006-01-02"),
	})
	return &config.StoreChangeMessage{
		AccountId:   "acct-1",
		EntityType:  "ledger",
		EntityId:    "row-1",
		Action:      "insert",
		ClientTxnId: txnId,
		Row:         row,
		OccurredAt:  occurred,
	}
}

func TestShouldApplyDedupesOnClientTxnId(t *testing.T) {
	seenTxn, _ := fakeSeen()
	msg := ledgerChange("txn-1", "Order #1", "1000", time.Now())

	apply, err := ShouldApply(msg, seenTxn, nil)
	if err != nil || !apply {
		t.Fatalf("first delivery: apply=%v err=%v, want apply", apply, err)
	}

	// Redelivery of the same transaction is dropped.
	apply, err = ShouldApply(msg, seenTxn, nil)
	if err != nil || apply {
		t.Fatalf("redelivery: apply=%v err=%v, want drop", apply, err)
	}
}

func TestShouldApplyLegacyEchoWithinWindowIsDropped(t *testing.T) {
	occurred := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	msg := ledgerChange("", "Evening tally", "42000", occurred)

	local := []models.LedgerItem{{
		Title:     "Evening tally",
		Amount:    decimal.RequireFromString("42000"),
		CreatedAt: occurred.Add(1500 * time.Millisecond),
	}}

	seenTxn, _ := fakeSeen()
	apply, err := ShouldApply(msg, seenTxn, local)
	if err != nil {
		t.Fatalf("ShouldApply: %v", err)
	}
	if apply {
		t.Fatal("a legacy echo inside the window must be dropped")
	}
}

func TestShouldApplyLegacyOutsideWindowIsApplied(t *testing.T) {
	occurred := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	msg := ledgerChange("", "Evening tally", "42000", occurred)

	local := []models.LedgerItem{{
		Title:     "Evening tally",
		Amount:    decimal.RequireFromString("42000"),
		CreatedAt: occurred.Add(5 * time.Second),
	}}

	seenTxn, _ := fakeSeen()
	apply, err := ShouldApply(msg, seenTxn, local)
	if err != nil {
		t.Fatalf("ShouldApply: %v", err)
	}
	if !apply {
		t.Fatal("same title+amount written seconds apart is a genuine second entry")
	}
}

func TestShouldApplyLegacyDifferentAmountIsApplied(t *testing.T) {
	occurred := time.Now()
	msg := ledgerChange("", "Evening tally", "42000", occurred)

	local := []models.LedgerItem{{
		Title:     "Evening tally",
		Amount:    decimal.RequireFromString("41000"),
		CreatedAt: occurred,
	}}

	seenTxn, _ := fakeSeen()
	apply, _ := ShouldApply(msg, seenTxn, local)
	if !apply {
		t.Fatal("different amount is not an echo")
	}
}

func TestShouldApplyNonLedgerLegacyAlwaysApplies(t *testing.T) {
	msg := &config.StoreChangeMessage{
		AccountId:  "acct-1",
		EntityType: "inventory",
		EntityId:   "item-1",
		Action:     "update",
	}
	seenTxn, _ := fakeSeen()
	apply, err := ShouldApply(msg, seenTxn, nil)
	if err != nil || !apply {
		t.Fatalf("apply=%v err=%v, want apply (no heuristic for non-ledger rows)", apply, err)
	}
}

func TestIsLegacyEchoIgnoresTxnBearingMessages(t *testing.T) {
	occurred := time.Now()
	msg := ledgerChange("txn-9", "X", "100", occurred)
	local := models.LedgerItem{Title: "X", Amount: decimal.RequireFromString("100"), CreatedAt: occurred}

	if IsLegacyEcho(msg, &local) {
		t.Fatal("messages with a txn id use exact dedupe, never the heuristic")
	}
}
