package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

var envVars = []string{
	"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "WORKSHOP_VERSION", "WORKSHOP_OPERATOR_ID",
	"DATABASE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"REDIS_URL", "MECHANIC_CACHE_TTL", "RABBITMQ_URL", "CHECKIN_QUEUE",
	"WORKSHOP_TIMEZONE", "WORKSHOP_DAY_START", "WORKSHOP_DAY_END",
	"WORKSHOP_SLOT_MINUTES", "WORKSHOP_LEAD_TIME",
	"WORKSHOP_REQUEST_TIMEOUT", "WORKSHOP_API_ADDR", "WORKSHOP_API_URL",
	"BREAKER_MAX_FAILURES", "BREAKER_OPEN_TIMEOUT",
	"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_RETRIES",
	"OUTBOX_RETENTION_DAYS", "OUTBOX_CLEANUP_INTERVAL", "OUTBOX_PROCESSOR_ENABLED",
	"WORKER_HEALTH_ADDR", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, uuid.Nil, cfg.OperatorID)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "workshop.checkins", cfg.CheckInQueue)
	assert.Equal(t, 5*time.Minute, cfg.MechanicCacheTTL)
	assert.Equal(t, 5, cfg.BreakerMaxFailures)
	assert.Equal(t, 7*24*time.Hour, cfg.OutboxRetention())
	assert.True(t, cfg.OutboxProcessorEnabled)
	assert.False(t, cfg.RemoteMode())

	assert.Equal(t, "America/Santiago", cfg.Location().String())
	assert.Equal(t, domain.DefaultWorkdayGrid(), cfg.Grid())
	assert.Equal(t, domain.MinimumLeadTime, cfg.LeadTime)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	operator := uuid.New()
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORKSHOP_OPERATOR_ID", operator.String())
	t.Setenv("WORKSHOP_TIMEZONE", "UTC")
	t.Setenv("WORKSHOP_DAY_START", "08:30")
	t.Setenv("WORKSHOP_DAY_END", "17:30")
	t.Setenv("WORKSHOP_SLOT_MINUTES", "30")
	t.Setenv("WORKSHOP_API_URL", "http://workshop-api:8080")
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, operator, cfg.OperatorID)
	assert.Equal(t, time.UTC.String(), cfg.Location().String())
	assert.Equal(t, domain.TimeOfDay{Hour: 8, Minute: 30}, cfg.Grid().Start)
	assert.Equal(t, 30*time.Minute, cfg.Grid().SlotDuration)
	assert.True(t, cfg.RemoteMode())
	assert.Equal(t, 100, cfg.OutboxBatchSize, "unparsable values fall back to the default")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown zone", "WORKSHOP_TIMEZONE", "Mars/Olympus"},
		{"bad day start", "WORKSHOP_DAY_START", "9am"},
		{"bad operator", "WORKSHOP_OPERATOR_ID", "operator-1"},
		{"empty grid", "WORKSHOP_DAY_END", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
