package storesync

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/gin-gonic/gin"
)

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSubPushHandler accepts Pub/Sub push deliveries of the store change
// feed. Always answers 204: a push retry storm helps nobody, failed messages
// come back through the pull worker.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_STORE_CHANGE_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var msg config.StoreChangeMessage
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			c.Status(204)
			return
		}
		if msg.AccountId == "" || msg.EntityId == "" {
			c.Status(204)
			return
		}

		if err := ProcessChange(c.Request.Context(), &msg); err != nil {
			config.LogError(config.GetLogger(), "storesync", "PubSubPushHandler", msg.EntityType+"/"+msg.EntityId, nil, err)
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
