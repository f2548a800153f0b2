package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// InProcessEventBus is the Publisher used when no broker is configured.
// Events reach registered consumers synchronously, one at a time.
type InProcessEventBus struct {
	mu       sync.Mutex
	registry *ConsumerRegistry
	logger   *slog.Logger
}

var _ Publisher = (*InProcessEventBus)(nil)

// NewInProcessEventBus creates a new in-process event bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish delivers payload to the consumers of routingKey. Consumer and
// decode failures are logged, not returned.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.registry.DispatchPayload(ctx, routingKey, payload); err != nil {
		b.logger.WarnContext(ctx, "in-process delivery failed",
			"routing_key", routingKey,
			"error", err,
		)
	}
	return nil
}

// PublishConsumedEvent dispatches an already decoded event and returns the
// consumers' errors.
func (b *InProcessEventBus) PublishConsumedEvent(ctx context.Context, event *ConsumedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Dispatch(ctx, event)
}

// Registry returns the underlying consumer registry.
func (b *InProcessEventBus) Registry() *ConsumerRegistry {
	return b.registry
}

// Close is a no-op.
func (b *InProcessEventBus) Close() error {
	return nil
}
