package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultConsumerQueue is the queue used when none is configured.
const DefaultConsumerQueue = "workshop.checkins"

// DeadLetterName is the exchange and queue that receive messages rejected
// by queue.
func DeadLetterName(queue string) string {
	return queue + ".dead"
}

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Exchange  string
	// Prefetch bounds unacknowledged deliveries. Defaults to 1.
	Prefetch int
	Logger   *slog.Logger
}

// RabbitMQConsumer consumes events from a durable queue bound to the
// domain exchange. Rejected messages go to a dead-letter queue named by
// DeadLetterName.
type RabbitMQConsumer struct {
	cfg      RabbitMQConsumerConfig
	conn     *amqp.Connection
	channel  *amqp.Channel
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
}

var _ Consumer = (*RabbitMQConsumer)(nil)

// NewRabbitMQConsumer dials the broker and declares the exchange, the queue
// and its dead-letter queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueue
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	conn, ch, err := openChannel(cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := declareConsumerTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.Info("RabbitMQ consumer connected",
		"queue", cfg.QueueName,
		"exchange", cfg.Exchange,
		"dead_letter", DeadLetterName(cfg.QueueName),
	)
	return &RabbitMQConsumer{
		cfg:      cfg,
		conn:     conn,
		channel:  ch,
		registry: registry,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

func declareConsumerTopology(ch *amqp.Channel, cfg RabbitMQConsumerConfig) error {
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return err
	}

	dead := DeadLetterName(cfg.QueueName)
	if err := ch.ExchangeDeclare(dead, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dead, "", dead, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	_, err := ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": dead},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// RegisterConsumer registers consumer and binds its routing keys to the
// queue.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		if err := c.channel.QueueBind(c.cfg.QueueName, key, c.cfg.Exchange, false, nil); err != nil {
			c.logger.Error("failed to bind routing key",
				"queue", c.cfg.QueueName,
				"routing_key", key,
				"error", err,
			)
			continue
		}
		c.logger.Debug("bound routing key", "queue", c.cfg.QueueName, "routing_key", key)
	}
}

// Start consumes until ctx is cancelled or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := c.channel.Consume(
		c.cfg.QueueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consuming events", "queue", c.cfg.QueueName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.settle(ctx, d, c.registry.DispatchPayload(ctx, d.RoutingKey, d.Body))
		}
	}
}

// settle acks handled deliveries. A failed delivery is requeued once; a
// second failure or a malformed body is rejected to the dead-letter queue.
func (c *RabbitMQConsumer) settle(ctx context.Context, d amqp.Delivery, err error) {
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.ErrorContext(ctx, "failed to ack delivery", "error", ackErr)
		}
		return
	}

	requeue := !d.Redelivered && !errors.Is(err, ErrMalformedEnvelope)
	c.logger.ErrorContext(ctx, "delivery failed",
		"routing_key", d.RoutingKey,
		"requeue", requeue,
		"error", err,
	)
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		c.logger.ErrorContext(ctx, "failed to nack delivery", "error", nackErr)
	}
}

// Close stops Start and closes the connection. Safe to call twice.
func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.running = false
	close(c.done)

	if err := c.channel.Close(); err != nil {
		c.logger.Warn("error closing channel", "error", err)
	}
	if err := c.conn.Close(); err != nil {
		return err
	}
	c.logger.Info("RabbitMQ consumer closed")
	return nil
}
