package storesync

import (
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
)

// legacyEchoWindow bounds the heuristic match for rows written before client
// transaction ids existed. An echoed legacy row lands within a couple of
// seconds of the local write.
const legacyEchoWindow = 2 * time.Second

// txnSeenTTL keeps dedupe keys long enough to outlive redelivery but not
// forever.
const txnSeenTTL = 24 * time.Hour

func txnDedupeKey(msg *config.StoreChangeMessage) string {
	return "storechange:txn:" + msg.ClientTxnId
}

// MarkTxnSeen records the transaction id and reports whether this is the
// first sighting. SETNX semantics: a false return means the change was
// already consumed (or originated here).
func MarkTxnSeen(msg *config.StoreChangeMessage) (bool, error) {
	return config.SetRedisValueIfAbsent(txnDedupeKey(msg), msg.EntityId, txnSeenTTL)
}

// IsLegacyEcho matches a ledger change without a transaction id against a
// locally written row: same title and amount, created within the echo window
// of the change's occurrence time.
func IsLegacyEcho(msg *config.StoreChangeMessage, local *models.LedgerItem) bool {
	if msg.ClientTxnId != "" {
		return false
	}
	var row models.LedgerItem
	if err := json.Unmarshal(msg.Row, &row); err != nil {
		return false
	}
	if row.Title != local.Title || !row.Amount.Equal(local.Amount) {
		return false
	}
	delta := msg.OccurredAt.Sub(local.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= legacyEchoWindow
}

// ShouldApply decides whether a change message carries new information.
// Changes bearing a ClientTxnId dedupe exactly on it; legacy changes fall
// back to the fuzzy match against recent local ledger writes. seenTxn is the
// SETNX primitive, injected so the decision stays testable.
func ShouldApply(msg *config.StoreChangeMessage, seenTxn func(*config.StoreChangeMessage) (bool, error), recent []models.LedgerItem) (bool, error) {
	if msg.ClientTxnId != "" {
		first, err := seenTxn(msg)
		if err != nil {
			return false, err
		}
		return first, nil
	}
	if msg.EntityType != "ledger" {
		return true, nil
	}
	for i := range recent {
		if IsLegacyEcho(msg, &recent[i]) {
			return false, nil
		}
	}
	return true, nil
}
