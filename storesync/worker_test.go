package storesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
)

// A message the worker can never apply must come back as a discard so the
// subscriber acks it; nacking would redeliver it forever.

func TestProcessChangeDiscardsUnknownEntityType(t *testing.T) {
	msg := &config.StoreChangeMessage{
		AccountId:  "acct-1",
		EntityType: "supplier",
		EntityId:   "row-1",
		Action:     "insert",
		OccurredAt: time.Now(),
	}

	err := ProcessChange(context.Background(), msg)
	if !errors.Is(err, ErrDiscardChange) {
		t.Fatalf("err = %v, want ErrDiscardChange", err)
	}
}

func TestProcessChangeDiscardsUnknownAction(t *testing.T) {
	msg := &config.StoreChangeMessage{
		AccountId:  "acct-1",
		EntityType: "ledger",
		EntityId:   "row-1",
		Action:     "upsert",
		OccurredAt: time.Now(),
	}

	err := ProcessChange(context.Background(), msg)
	if !errors.Is(err, ErrDiscardChange) {
		t.Fatalf("err = %v, want ErrDiscardChange", err)
	}
}

func TestProcessChangeDiscardsIncompleteMessage(t *testing.T) {
	msg := &config.StoreChangeMessage{EntityType: "ledger", Action: "insert"}

	err := ProcessChange(context.Background(), msg)
	if !errors.Is(err, ErrDiscardChange) {
		t.Fatalf("err = %v, want ErrDiscardChange", err)
	}
}
