package storesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/workflow"
	"cloud.google.com/go/pubsub"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDiscardChange marks messages that can never be applied, no matter how
// often they are redelivered. The worker acks these instead of nacking.
var ErrDiscardChange = errors.New("change message cannot be applied")

func subscriptionName() string {
	if v := strings.TrimSpace(os.Getenv("STORE_CHANGE_SUBSCRIPTION")); v != "" {
		return v
	}
	return "pos-store-changes-sub"
}

// RunWorker consumes the store change feed until ctx is cancelled. Each
// message is deduplicated and then applied under the account's posting lock.
// Application errors nack the message so Pub/Sub redelivers; messages that
// can never become valid are acked and dropped.
func RunWorker(ctx context.Context) error {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, config.GetStoreChangeTopicName())
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, subscriptionName(), topic)
	if err != nil {
		return err
	}

	logger := config.GetLogger()
	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var msg config.StoreChangeMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// Malformed payloads never become valid on redelivery.
			config.LogError(logger, "storesync", "RunWorker", "decode", string(m.Data), err)
			m.Ack()
			return
		}
		if err := ProcessChange(ctx, &msg); err != nil {
			config.LogError(logger, "storesync", "RunWorker", "apply "+msg.EntityType+"/"+msg.EntityId, nil, err)
			if errors.Is(err, ErrDiscardChange) {
				m.Ack()
			} else {
				m.Nack()
			}
			return
		}
		m.Ack()
	})
}

// ProcessChange applies one change-feed message: dedupe first, then upsert or
// delete the local row.
func ProcessChange(ctx context.Context, msg *config.StoreChangeMessage) error {
	if msg.AccountId == "" || msg.EntityType == "" || msg.EntityId == "" {
		return fmt.Errorf("%w: missing account, entity type or entity id", ErrDiscardChange)
	}
	switch msg.EntityType {
	case "ledger", "order", "inventory":
	default:
		return fmt.Errorf("%w: unknown entity type %s", ErrDiscardChange, msg.EntityType)
	}
	switch msg.Action {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("%w: unknown action %s", ErrDiscardChange, msg.Action)
	}
	ctx = appctx.Set(ctx, appctx.ContextKeyAccountId, msg.AccountId)

	recent, err := recentLedgerWrites(ctx, msg)
	if err != nil {
		return err
	}
	apply, err := ShouldApply(msg, MarkTxnSeen, recent)
	if err != nil {
		return err
	}
	if !apply {
		return nil
	}

	lock, err := workflow.AcquireAccountPostingLock(ctx, msg.AccountId)
	if err != nil {
		return err
	}
	defer workflow.ReleaseAccountPostingLock(ctx, lock)

	db := config.GetDB().WithContext(ctx)
	switch msg.EntityType {
	case "ledger":
		return applyRow[models.LedgerItem](db, msg)
	case "order":
		return applyRow[models.Order](db, msg)
	case "inventory":
		return applyRow[models.InventoryItem](db, msg)
	}
	return fmt.Errorf("%w: unknown entity type %s", ErrDiscardChange, msg.EntityType)
}

// recentLedgerWrites fetches the fuzzy-match candidates for a legacy ledger
// change: local rows on the same business date.
func recentLedgerWrites(ctx context.Context, msg *config.StoreChangeMessage) ([]models.LedgerItem, error) {
	if msg.ClientTxnId != "" || msg.EntityType != "ledger" {
		return nil, nil
	}
	var row models.LedgerItem
	if err := json.Unmarshal(msg.Row, &row); err != nil {
		return nil, nil
	}
	if row.Date == "" {
		return nil, nil
	}
	return models.GetLedgerEntries(ctx, row.Date, row.Date)
}

func applyRow[T any](db *gorm.DB, msg *config.StoreChangeMessage) error {
	switch msg.Action {
	case "insert", "update":
		var row T
		if err := json.Unmarshal(msg.Row, &row); err != nil {
			return err
		}
		// Upsert on primary key: redelivered inserts converge to the same row.
		return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	case "delete":
		var row T
		return db.Where("id = ? AND account_id = ?", msg.EntityId, msg.AccountId).Delete(&row).Error
	}
	return fmt.Errorf("%w: unknown action %s", ErrDiscardChange, msg.Action)
}

// PublishChange emits a local write onto the feed so sibling devices pick it
// up. Best effort: a publish failure is logged, never surfaced to the user
// whose write already committed.
func PublishChange(ctx context.Context, accountId, entityType, entityId, action, clientTxnId string, row any) {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "storesync", "PublishChange", "client", nil, err)
		return
	}
	data, err := json.Marshal(row)
	if err != nil {
		config.LogError(config.GetLogger(), "storesync", "PublishChange", "marshal", nil, err)
		return
	}
	payload, _ := json.Marshal(config.StoreChangeMessage{
		AccountId:   accountId,
		EntityType:  entityType,
		EntityId:    entityId,
		Action:      action,
		ClientTxnId: clientTxnId,
		Row:         data,
		OccurredAt:  time.Now(),
	})
	topic := client.Topic(config.GetStoreChangeTopicName())
	res := topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := res.Get(ctx); err != nil {
		config.LogError(config.GetLogger(), "storesync", "PublishChange", entityType+"/"+entityId, nil, err)
	}
}
