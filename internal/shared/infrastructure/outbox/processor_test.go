package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
	"github.com/fleetworks/workshop/pkg/observability"
)

type publishedMessage struct {
	RoutingKey string
	Payload    []byte
}

type mockPublisher struct {
	mu          sync.Mutex
	published   []publishedMessage
	failForKeys map[string]bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{failForKeys: make(map[string]bool)}
}

func (p *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failForKeys[routingKey] {
		return errors.New("publish failed")
	}
	p.published = append(p.published, publishedMessage{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) PublishedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testMessage(routingKey string) *outbox.Message {
	payload, _ := json.Marshal(map[string]string{"routing_key": routingKey})
	return &outbox.Message{
		EventID:       uuid.New(),
		AggregateType: "appointment",
		AggregateID:   uuid.New(),
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       payload,
		Metadata:      json.RawMessage(`{"correlation_id":"req-1"}`),
		CreatedAt:     time.Now(),
	}
}

func TestProcessor_ProcessOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes pending messages and marks them", func(t *testing.T) {
		repo := outbox.NewInMemoryRepository()
		publisher := newMockPublisher()
		processor := outbox.NewProcessor(repo, publisher, outbox.DefaultProcessorConfig(), nil)

		require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{
			testMessage("appointments.appointment.requested"),
			testMessage("appointments.appointment.confirmed"),
		}))

		require.NoError(t, processor.ProcessOnce(ctx))

		assert.Equal(t, 2, publisher.PublishedCount())
		for _, msg := range repo.Messages() {
			assert.True(t, msg.IsPublished())
		}
		stats := processor.GetStats()
		assert.Equal(t, uint64(2), stats.PublishedCount)
		assert.NotNil(t, stats.LastProcessedAt)

		require.NoError(t, processor.ProcessOnce(ctx))
		assert.Equal(t, 2, publisher.PublishedCount(), "published rows are not sent again")
	})

	t.Run("failed publish schedules a retry", func(t *testing.T) {
		repo := outbox.NewInMemoryRepository()
		publisher := newMockPublisher()
		publisher.failForKeys["appointments.appointment.cancelled"] = true
		processor := outbox.NewProcessor(repo, publisher, outbox.DefaultProcessorConfig(), nil)

		require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{
			testMessage("appointments.appointment.requested"),
			testMessage("appointments.appointment.cancelled"),
		}))

		require.NoError(t, processor.ProcessOnce(ctx))

		assert.Equal(t, 1, publisher.PublishedCount())
		failed := repo.Messages()[1]
		assert.Equal(t, 1, failed.RetryCount)
		require.NotNil(t, failed.LastError)
		require.NotNil(t, failed.NextRetryAt)
		assert.True(t, failed.NextRetryAt.After(time.Now()))

		stats := processor.GetStats()
		assert.Equal(t, uint64(1), stats.FailedCount)
		assert.NotNil(t, stats.LastErrorAt)
	})

	t.Run("dead letters after max retries", func(t *testing.T) {
		repo := outbox.NewInMemoryRepository()
		publisher := newMockPublisher()
		publisher.failForKeys["k"] = true
		cfg := outbox.DefaultProcessorConfig()
		cfg.MaxRetries = 1
		processor := outbox.NewProcessor(repo, publisher, cfg, nil)

		require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{testMessage("k")}))
		require.NoError(t, processor.ProcessOnce(ctx))

		msg := repo.Messages()[0]
		assert.NotNil(t, msg.DeadLetteredAt)
		assert.Equal(t, 0, msg.RetryCount)
		assert.Equal(t, uint64(1), processor.GetStats().DeadCount)
	})
}

func TestProcessor_ReportsMetrics(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewInMemoryRepository()
	publisher := newMockPublisher()
	publisher.failForKeys["appointments.appointment.cancelled"] = true
	metrics := observability.NewInMemoryMetrics()
	processor := outbox.NewProcessor(repo, publisher, outbox.DefaultProcessorConfig(), nil, outbox.WithMetrics(metrics))

	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{
		testMessage("appointments.appointment.confirmed"),
		testMessage("appointments.appointment.cancelled"),
	}))
	require.NoError(t, processor.ProcessOnce(ctx))

	assert.Equal(t, int64(1), metrics.GetCounter(outbox.MetricPublished,
		observability.T("routing_key", "appointments.appointment.confirmed")))
	assert.Equal(t, int64(1), metrics.GetCounter(outbox.MetricRetried,
		observability.T("routing_key", "appointments.appointment.cancelled")))
	assert.GreaterOrEqual(t, metrics.GetGauge(outbox.MetricLag), 0.0)
}

func TestProcessor_Cleanup(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewInMemoryRepository()
	cfg := outbox.DefaultProcessorConfig()
	cfg.Retention = time.Hour
	processor := outbox.NewProcessor(repo, newMockPublisher(), cfg, nil)

	old := testMessage("k")
	fresh := testMessage("k")
	require.NoError(t, repo.SaveBatch(ctx, []*outbox.Message{old, fresh}))
	longAgo := time.Now().Add(-2 * time.Hour)
	old.PublishedAt = &longAgo
	require.NoError(t, repo.MarkPublished(ctx, fresh.ID))

	deleted, err := processor.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, repo.Messages(), 1)
}

func TestProcessor_StartStop(t *testing.T) {
	repo := outbox.NewInMemoryRepository()
	publisher := newMockPublisher()
	processor := outbox.NewProcessor(repo, publisher, outbox.ProcessorConfig{
		PollInterval:     5 * time.Millisecond,
		BatchSize:        10,
		MaxRetries:       3,
		RetryBackoffBase: time.Millisecond,
		RetryBackoffMax:  10 * time.Millisecond,
	}, nil)

	require.NoError(t, processor.Start(context.Background()))
	require.NoError(t, processor.Start(context.Background()), "second start is a no-op")
	assert.True(t, processor.IsRunning())
	assert.True(t, processor.GetStats().IsRunning)

	require.NoError(t, repo.SaveBatch(context.Background(), []*outbox.Message{testMessage("k")}))

	assert.Eventually(t, func() bool {
		return publisher.PublishedCount() == 1
	}, time.Second, 5*time.Millisecond)

	processor.Stop()
	processor.Stop()
	assert.False(t, processor.IsRunning())
}
