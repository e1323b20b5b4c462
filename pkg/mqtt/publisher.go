package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getmockd/kbase/pkg/entity"
)

// StatePublisher publishes the knowledge-base state as a retained JSON
// message, so a client that subscribes later still receives the latest state.
type StatePublisher struct {
	broker *Broker
	qos    byte
}

// NewStatePublisher creates a publisher on the broker's state topic.
func NewStatePublisher(b *Broker) *StatePublisher {
	return &StatePublisher{broker: b, qos: 1}
}

// Publish implements broadcast.Publisher.
func (p *StatePublisher) Publish(_ context.Context, state entity.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.broker.Publish(p.broker.StateTopic(), payload, p.qos, true); err != nil {
		return fmt.Errorf("publish state on %s: %w", p.broker.StateTopic(), err)
	}
	return nil
}
