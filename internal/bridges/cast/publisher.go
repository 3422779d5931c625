package cast

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

// EventPublisher turns snapshots into FIMP event messages.
//
// Thread Safety: All methods are safe for concurrent use.
type EventPublisher struct {
	client MQTTClient
	topics TopicScheme
	qos    byte

	sent atomic.Uint64
}

// NewEventPublisher creates a publisher for the given topic scheme.
func NewEventPublisher(client MQTTClient, topics TopicScheme, qos byte) *EventPublisher {
	return &EventPublisher{client: client, topics: topics, qos: qos}
}

// Publish sends the mode, volume, playback and metadata reports for snap,
// in that order. Messages are not retained.
//
// A failed publish does not stop the remaining ones; all failures are
// returned joined.
func (p *EventPublisher) Publish(snap Snapshot) error {
	var errs []error

	for _, msg := range eventMessages(snap) {
		topic := p.topics.MediaEvent(snap.ID)
		if msg.Serv == ServiceSiren {
			topic = p.topics.SirenEvent(snap.ID)
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding %s: %w", msg.Type, err))
			continue
		}

		if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s to %s: %w", msg.Type, topic, err))
			continue
		}
		p.sent.Add(1)
	}

	return errors.Join(errs...)
}

// Sent returns the number of event messages published successfully.
func (p *EventPublisher) Sent() uint64 {
	return p.sent.Load()
}
