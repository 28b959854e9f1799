/**
 * @description
 * This package provides a simple producer for publishing gateway events to RabbitMQ.
 * It encapsulates connecting, declaring the durable topic exchange and publishing a
 * JSON message with a routing key, plus a no-op fallback used when the broker is
 * not configured or unreachable.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyDepositSettled      = "deposit.settled"
	RoutingKeyWithdrawalRequested = "withdrawal.requested"
)

// Publisher is the interface implemented by types that can publish gateway events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	PublishDepositSettled(ctx context.Context, event domain.DepositSettledEvent) error
	PublishWithdrawalRequested(ctx context.Context, event domain.WithdrawalRequestedEvent) error
	Close()
}

// EventProducerFallback is a minimal no-op publisher used when RabbitMQ is unavailable at startup.
type EventProducerFallback struct {
	Logger *slog.Logger
}

func (p *EventProducerFallback) Publish(ctx context.Context, routingKey string, body interface{}) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("publish skipped", "component", "rabbitmq_producer", "mode", "fallback", "routing_key", routingKey)
	return nil
}

func (p *EventProducerFallback) PublishDepositSettled(ctx context.Context, event domain.DepositSettledEvent) error {
	return p.Publish(ctx, RoutingKeyDepositSettled, event)
}

func (p *EventProducerFallback) PublishWithdrawalRequested(ctx context.Context, event domain.WithdrawalRequestedEvent) error {
	return p.Publish(ctx, RoutingKeyWithdrawalRequested, event)
}

func (p *EventProducerFallback) Close() {}

// EventProducer holds the RabbitMQ connection and channel for publishing messages.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials the broker and declares the exchange.
func NewEventProducer(amqpURL, exchange string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	p := &EventProducer{conn: conn, exchange: exchange, logger: logger}
	if err := p.reopenChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// reopenChannel must be called with mu held, or before the producer is shared.
func (p *EventProducer) reopenChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return err
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	return nil
}

// Publish sends a JSON message to the configured exchange with a routing key.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		p.logger.Error("json marshal failed", "component", "rabbitmq_producer", "routing_key", routingKey, "err", err)
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         jsonBody,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed; reopening channel", "component", "rabbitmq_producer", "exchange", p.exchange, "routing_key", routingKey, "err", err)
	if reopenErr := p.reopenChannel(); reopenErr != nil {
		return reopenErr
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

func (p *EventProducer) PublishDepositSettled(ctx context.Context, event domain.DepositSettledEvent) error {
	return p.Publish(ctx, RoutingKeyDepositSettled, event)
}

func (p *EventProducer) PublishWithdrawalRequested(ctx context.Context, event domain.WithdrawalRequestedEvent) error {
	return p.Publish(ctx, RoutingKeyWithdrawalRequested, event)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
