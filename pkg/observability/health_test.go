package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("empty registry is healthy", func(t *testing.T) {
		health := NewHealthRegistry().GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusHealthy, health.Status)
		assert.Empty(t, health.Checks)
	})

	t.Run("dependency failure degrades", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("database", DatabaseHealthChecker(ok))
		r.Register("redis", DependencyHealthChecker("redis", down))

		health := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusDegraded, health.Status)
		require.Contains(t, health.Checks, "redis")
		assert.Contains(t, health.Checks["redis"].Message, "connection refused")
		assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
	})

	t.Run("database failure is unhealthy", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("database", DatabaseHealthChecker(down))
		r.Register("rabbitmq", DependencyHealthChecker("rabbitmq", down))

		health := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusUnhealthy, health.Status)
		assert.False(t, health.Checks["database"].Timestamp.IsZero())
	})
}
