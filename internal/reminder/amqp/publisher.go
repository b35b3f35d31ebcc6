// Package amqp publishes reminders to a RabbitMQ exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MrJamesThe3rd/receivables/internal/reminder"
)

const publishTimeout = 10 * time.Second

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
}

// Dial connects to the broker and declares a durable topic exchange.
func Dial(cfg Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)
	}

	return &Publisher{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Publish sends the reminder as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, r reminder.Reminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding reminder: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    r.ID.String(),
		Timestamp:    r.CreatedAt,
		Type:         string(r.Channel),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publishing reminder %s: %w", r.ID, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("closing channel: %w", err)
	}

	if p.conn != nil {
		return p.conn.Close()
	}

	return nil
}
