package mq

import (
	"LocalVault/config"
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dlqSuffix = ".dlq"

// Topology names the exchange and queue that carry notifications.
type Topology struct {
	Exchange string
	Queue    string
}

// DLQExchange receives messages the worker could not decode.
func (t Topology) DLQExchange() string { return t.Exchange + dlqSuffix }

// DLQQueue is bound to DLQExchange.
func (t Topology) DLQQueue() string { return t.Queue + dlqSuffix }

// NotifyTopology returns the configured notification topology.
func NotifyTopology() Topology {
	return Topology{
		Exchange: config.AppConfig.NotifyExchange,
		Queue:    config.AppConfig.NotifyQueue,
	}
}

type Client struct {
	Conn      *amqp.Connection //tcp
	Channel   *amqp.Channel    // AMQP
	Topology  Topology
	publishMu sync.Mutex
}

// Dial opens a connection and a channel on url.
func Dial(url string, topo Topology) (*Client, error) {
	if topo.Exchange == "" || topo.Queue == "" {
		return nil, errors.New("mq: exchange and queue are required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, Channel: ch, Topology: topo}, nil
}

// DialPublisher dials and declares the topology.
func DialPublisher(url string, topo Topology) (*Client, error) {
	client, err := Dial(url, topo)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

// Closed reports whether the connection or channel is gone.
func (c *Client) Closed() bool {
	return c == nil || c.Conn == nil || c.Conn.IsClosed() || c.Channel == nil || c.Channel.IsClosed()
}

// DeclareTopology declares a durable fanout exchange bound to a durable queue,
// plus the dead letter pair.
func (c *Client) DeclareTopology() error {
	t := c.Topology
	if err := c.Channel.ExchangeDeclare(
		t.Exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}
	if err := c.Channel.ExchangeDeclare(
		t.DLQExchange(),
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}
	if _, err := c.Channel.QueueDeclare(
		t.Queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}
	if _, err := c.Channel.QueueDeclare(
		t.DLQQueue(),
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}
	if err := c.Channel.QueueBind(
		t.Queue,
		"",
		t.Exchange,
		false,
		nil,
	); err != nil {
		return err
	}
	return c.Channel.QueueBind(
		t.DLQQueue(),
		"",
		t.DLQExchange(),
		false,
		nil,
	)
}

// Publish sends a JSON body to the notification exchange.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	return c.publish(ctx, c.Topology.Exchange, body)
}

// PublishDLQ parks a body on the dead letter exchange.
func (c *Client) PublishDLQ(ctx context.Context, body []byte) error {
	return c.publish(ctx, c.Topology.DLQExchange(), body)
}

func (c *Client) publish(ctx context.Context, exchange string, body []byte) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
	return c.Channel.PublishWithContext(
		ctx,
		exchange,
		"",
		false,
		false,
		msg,
	)
}
