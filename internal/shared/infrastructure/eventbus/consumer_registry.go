package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ConsumerRegistry routes events to the consumers subscribed to their
// routing key. Both the RabbitMQ consumer and the in-process bus dispatch
// through it.
type ConsumerRegistry struct {
	mu     sync.RWMutex
	byKey  map[string][]EventConsumer
	logger *slog.Logger
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		byKey:  make(map[string][]EventConsumer),
		logger: logger,
	}
}

// Register subscribes consumer to each of its event types.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range consumer.EventTypes() {
		r.byKey[key] = append(r.byKey[key], consumer)
		r.logger.Debug("registered consumer", "routing_key", key)
	}
}

// Consumers returns the consumers registered for routingKey.
func (r *ConsumerRegistry) Consumers(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byKey[routingKey]
}

// EventTypes returns every routing key with at least one consumer, sorted.
func (r *ConsumerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConsumerCount returns the number of registrations across all event types.
func (r *ConsumerRegistry) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, cs := range r.byKey {
		n += len(cs)
	}
	return n
}

// Dispatch hands the event to every consumer of its routing key. All
// consumers run even if one fails; their errors are joined.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	consumers := r.Consumers(event.RoutingKey)
	if len(consumers) == 0 {
		r.logger.Debug("no consumers for event", "routing_key", event.RoutingKey)
		return nil
	}

	ctx = event.Context(ctx)
	start := time.Now()

	var errs []error
	for _, c := range consumers {
		if err := c.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	attrs := []any{
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"consumers", len(consumers),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "event dispatch failed", append(attrs, "error", err)...)
		return err
	}
	r.logger.DebugContext(ctx, "event dispatched", attrs...)
	return nil
}

// DispatchPayload decodes a raw message body and dispatches it. A body that
// is not an envelope yields ErrMalformedEnvelope.
func (r *ConsumerRegistry) DispatchPayload(ctx context.Context, routingKey string, body []byte) error {
	event, err := DecodeEnvelope(routingKey, body)
	if err != nil {
		return err
	}
	return r.Dispatch(ctx, event)
}
