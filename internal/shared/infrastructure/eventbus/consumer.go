package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/pkg/observability"
)

// ErrMalformedEnvelope marks a message body that is not a bus envelope.
// Redelivering it cannot succeed.
var ErrMalformedEnvelope = errors.New("malformed event envelope")

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["workorders.order.opened"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent is the envelope carried on the bus. The outbox writes the
// same shape, so anything published by this service can be consumed here.
type ConsumedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	OperatorID    uuid.UUID `json:"operator_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CausationID   uuid.UUID `json:"causation_id,omitempty"`
}

// DecodeEnvelope parses a message body. A body without a routing key takes
// the key it was delivered under.
func DecodeEnvelope(routingKey string, body []byte) (*ConsumedEvent, error) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}
	return event, nil
}

// Decode unmarshals the event payload into v.
func (e *ConsumedEvent) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Context returns ctx carrying the event's correlation and operator ids,
// so consumer logs join the request that caused the event.
func (e *ConsumedEvent) Context(ctx context.Context) context.Context {
	if e.Metadata.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, e.Metadata.CorrelationID)
	}
	if e.Metadata.OperatorID != uuid.Nil {
		ctx = observability.WithOperatorID(ctx, e.Metadata.OperatorID)
	}
	return ctx
}

// Consumer defines the interface for consuming events from a message broker.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterConsumer registers an event consumer.
	RegisterConsumer(consumer EventConsumer)

	// Close closes the consumer connection.
	Close() error
}
