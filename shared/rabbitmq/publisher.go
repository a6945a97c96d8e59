// Package rabbitmq provides a publish-only client over one exchange.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds connection and exchange settings.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	ExchangeName  string
	ExchangeType  string
	Durable       bool
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
}

// Publisher is a publish-only RabbitMQ client bound to one exchange.
type Publisher struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewPublisher connects with retries and declares the exchange.
func NewPublisher(cfg *Config, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{config: cfg, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		p.config.User, p.config.Password, p.config.Host, p.config.Port, p.config.VHost,
	)

	attempts := p.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Info("connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		p.conn, err = amqp.DialConfig(dsn, amqp.Config{
			Heartbeat: p.config.Heartbeat,
			Locale:    "en_US",
		})
		if err == nil {
			break
		}

		p.logger.Error("RabbitMQ connection failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < attempts {
			time.Sleep(p.config.RetryInterval)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	p.channel, err = p.conn.Channel()
	if err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	exchangeType := p.config.ExchangeType
	if exchangeType == "" {
		exchangeType = "topic"
	}
	if err := p.channel.ExchangeDeclare(
		p.config.ExchangeName,
		exchangeType,
		p.config.Durable,
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		p.channel.Close()
		p.conn.Close()
		return fmt.Errorf("failed to declare exchange %q: %w", p.config.ExchangeName, err)
	}

	p.logger.Info("RabbitMQ publisher ready",
		slog.String("exchange", p.config.ExchangeName),
	)
	return nil
}

// Publish sends one persistent JSON message to the exchange under the
// given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		p.config.ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.Debug("message published",
		slog.String("routing_key", routingKey),
		slog.Int("bytes", len(body)),
	)
	return nil
}

// Close shuts the channel and connection down.
func (p *Publisher) Close() error {
	p.logger.Info("closing RabbitMQ publisher")
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("failed to close channel", slog.String("error", err.Error()))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
