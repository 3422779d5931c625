package mqtt

import (
	"encoding/json"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/config"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonShutdown = "graceful_shutdown"
	reasonCrash    = "unexpected_disconnect"
)

// statusMessage is the retained payload on the status topic.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(clientID, status, reason string) []byte {
	b, _ := json.Marshal(statusMessage{ //nolint:errcheck // plain string fields always marshal
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// configureLWT registers the crash status as the will (QoS 1, retained).
// No will is set without a status topic.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	if cfg.Topics.Status == "" {
		return
	}
	opts.SetBinaryWill(cfg.Topics.Status, statusPayload(cfg.Broker.ClientID, statusOffline, reasonCrash), 1, true)
}

// publishStatus writes a retained status message, best effort.
func (c *Client) publishStatus(status, reason string) {
	topic := c.cfg.Topics.Status
	if topic == "" {
		return
	}
	token := c.paho.Publish(topic, byte(c.cfg.QoS), true, statusPayload(c.cfg.Broker.ClientID, status, reason))
	if err := await(token, operationTimeout); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT status publish failed", "status", status, "error", err)
		}
	}
}
