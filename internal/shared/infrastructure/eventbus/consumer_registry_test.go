package eventbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/shared/infrastructure/eventbus"
	"github.com/fleetworks/workshop/pkg/observability"
)

type mockConsumer struct {
	eventTypes []string
	events     []*eventbus.ConsumedEvent
	contexts   []context.Context
	err        error
}

func (m *mockConsumer) EventTypes() []string {
	return m.eventTypes
}

func (m *mockConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	m.events = append(m.events, event)
	m.contexts = append(m.contexts, ctx)
	return m.err
}

func TestConsumerRegistry(t *testing.T) {
	t.Run("registers a consumer for each event type", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		registry.Register(&mockConsumer{
			eventTypes: []string{"workorders.order.opened", "appointments.appointment.cancelled"},
		})

		assert.Len(t, registry.Consumers("workorders.order.opened"), 1)
		assert.Len(t, registry.Consumers("appointments.appointment.cancelled"), 1)
		assert.Empty(t, registry.Consumers("unknown"))
		assert.Equal(t, []string{"appointments.appointment.cancelled", "workorders.order.opened"}, registry.EventTypes())
		assert.Equal(t, 2, registry.ConsumerCount())
	})

	t.Run("dispatches to every consumer of the routing key", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		first := &mockConsumer{eventTypes: []string{"workorders.order.opened"}}
		second := &mockConsumer{eventTypes: []string{"workorders.order.opened"}}
		other := &mockConsumer{eventTypes: []string{"something.else"}}
		registry.Register(first)
		registry.Register(second)
		registry.Register(other)

		err := registry.Dispatch(context.Background(), &eventbus.ConsumedEvent{
			EventID:    uuid.New(),
			RoutingKey: "workorders.order.opened",
		})

		require.NoError(t, err)
		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
		assert.Empty(t, other.events)
	})

	t.Run("keeps dispatching after a failure and joins errors", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		boom := errors.New("boom")
		failing := &mockConsumer{eventTypes: []string{"k"}, err: boom}
		healthy := &mockConsumer{eventTypes: []string{"k"}}
		registry.Register(failing)
		registry.Register(healthy)

		err := registry.Dispatch(context.Background(), &eventbus.ConsumedEvent{RoutingKey: "k"})

		require.ErrorIs(t, err, boom)
		assert.Len(t, healthy.events, 1)
	})

	t.Run("no consumers is not an error", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		assert.NoError(t, registry.Dispatch(context.Background(), &eventbus.ConsumedEvent{RoutingKey: "nobody"}))
	})
}

func TestConsumerRegistry_DispatchPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("consumers see the event's correlation and operator", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		consumer := &mockConsumer{eventTypes: []string{"workorders.order.opened"}}
		registry.Register(consumer)

		operator := uuid.New()
		body := []byte(`{"event_id":"` + uuid.NewString() + `","metadata":{"correlation_id":"corr-7","operator_id":"` + operator.String() + `"}}`)

		require.NoError(t, registry.DispatchPayload(ctx, "workorders.order.opened", body))
		require.Len(t, consumer.events, 1)
		assert.Equal(t, "workorders.order.opened", consumer.events[0].RoutingKey)
		assert.Equal(t, "corr-7", observability.CorrelationIDFromContext(consumer.contexts[0]))
		assert.Equal(t, operator, observability.OperatorIDFromContext(consumer.contexts[0]))
	})

	t.Run("malformed body", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(nil)
		err := registry.DispatchPayload(ctx, "k", []byte("{"))
		assert.ErrorIs(t, err, eventbus.ErrMalformedEnvelope)
	})
}

func TestDeadLetterName(t *testing.T) {
	assert.Equal(t, "workshop.checkins.dead", eventbus.DeadLetterName(eventbus.DefaultConsumerQueue))
}
