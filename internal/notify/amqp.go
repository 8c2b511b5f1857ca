package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broker is the publishing side of a message queue client.
type Broker interface {
	Publish(ctx context.Context, body []byte) error
}

// AMQPPublisher forwards notifications to the broker exchange consumed by cmd/worker.
type AMQPPublisher struct {
	broker Broker
}

// NewAMQPPublisher wraps a broker client.
func NewAMQPPublisher(broker Broker) *AMQPPublisher {
	return &AMQPPublisher{broker: broker}
}

func (p *AMQPPublisher) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := p.broker.Publish(ctx, body); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}
