package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/shared/infrastructure/eventbus"
)

func TestInProcessEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("publish decodes the envelope and dispatches", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil)
		consumer := &mockConsumer{eventTypes: []string{"workorders.order.opened"}}
		bus.RegisterConsumer(consumer)

		operator := uuid.New()
		event := &eventbus.ConsumedEvent{
			EventID:       uuid.New(),
			AggregateID:   uuid.New(),
			AggregateType: "work_order",
			RoutingKey:    "workorders.order.opened",
			OccurredAt:    time.Now().UTC(),
			Payload:       json.RawMessage(`{"work_order_ref":"WO-1"}`),
			Metadata:      eventbus.EventMetadata{OperatorID: operator},
		}
		payload, err := json.Marshal(event)
		require.NoError(t, err)

		require.NoError(t, bus.Publish(ctx, "workorders.order.opened", payload))

		require.Len(t, consumer.events, 1)
		got := consumer.events[0]
		assert.Equal(t, event.EventID, got.EventID)
		assert.Equal(t, operator, got.Metadata.OperatorID)

		var body struct {
			WorkOrderRef string `json:"work_order_ref"`
		}
		require.NoError(t, got.Decode(&body))
		assert.Equal(t, "WO-1", body.WorkOrderRef)
	})

	t.Run("routing key falls back to the publish argument", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil)
		consumer := &mockConsumer{eventTypes: []string{"k"}}
		bus.RegisterConsumer(consumer)

		require.NoError(t, bus.Publish(ctx, "k", []byte(`{"event_id":"`+uuid.NewString()+`"}`)))
		require.Len(t, consumer.events, 1)
		assert.Equal(t, "k", consumer.events[0].RoutingKey)
	})

	t.Run("consumer errors are swallowed", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil)
		consumer := &mockConsumer{eventTypes: []string{"k"}, err: errors.New("consumer error")}
		bus.RegisterConsumer(consumer)

		require.NoError(t, bus.Publish(ctx, "k", []byte(`{"routing_key":"k"}`)))
		assert.Len(t, consumer.events, 1)
	})

	t.Run("invalid payload is skipped", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil)
		consumer := &mockConsumer{eventTypes: []string{"k"}}
		bus.RegisterConsumer(consumer)

		require.NoError(t, bus.Publish(ctx, "k", []byte("invalid json")))
		assert.Empty(t, consumer.events)
	})

	t.Run("publish consumed event returns consumer errors", func(t *testing.T) {
		bus := eventbus.NewInProcessEventBus(nil)
		boom := errors.New("boom")
		bus.RegisterConsumer(&mockConsumer{eventTypes: []string{"k"}, err: boom})

		err := bus.PublishConsumedEvent(ctx, &eventbus.ConsumedEvent{RoutingKey: "k"})
		assert.ErrorIs(t, err, boom)
		assert.NotNil(t, bus.Registry())
		assert.NoError(t, bus.Close())
	})
}
