package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // the workshop zone must resolve on hosts without zoneinfo

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv     string
	LogLevel   string
	LogFormat  string
	Version    string
	OperatorID uuid.UUID

	// Database
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	// Redis
	RedisURL         string
	MechanicCacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL  string
	CheckInQueue string

	// Workshop calendar
	Timezone    string
	DayStart    string
	DayEnd      string
	SlotMinutes int
	LeadTime    time.Duration

	// API and remote client
	RequestTimeout time.Duration
	APIAddr        string
	APIURL         string

	// Circuit breaker
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool

	// Worker
	WorkerHealthAddr string

	// Tracing
	OTLPEndpoint string
	OTLPInsecure bool

	grid     domain.WorkdayGrid
	location *time.Location
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		Version:   getEnv("WORKSHOP_VERSION", "dev"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		MechanicCacheTTL: getDurationEnv("MECHANIC_CACHE_TTL", 5*time.Minute),

		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		CheckInQueue: getEnv("CHECKIN_QUEUE", "workshop.checkins"),

		Timezone:    getEnv("WORKSHOP_TIMEZONE", "America/Santiago"),
		DayStart:    getEnv("WORKSHOP_DAY_START", "09:00"),
		DayEnd:      getEnv("WORKSHOP_DAY_END", "19:00"),
		SlotMinutes: getIntEnv("WORKSHOP_SLOT_MINUTES", 60),
		LeadTime:    getDurationEnv("WORKSHOP_LEAD_TIME", domain.MinimumLeadTime),

		RequestTimeout: getDurationEnv("WORKSHOP_REQUEST_TIMEOUT", 10*time.Second),
		APIAddr:        getEnv("WORKSHOP_API_ADDR", "0.0.0.0:8080"),
		APIURL:         getEnv("WORKSHOP_API_URL", ""),

		BreakerMaxFailures: getIntEnv("BREAKER_MAX_FAILURES", 5),
		BreakerOpenTimeout: getDurationEnv("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 7),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	if raw := getEnv("WORKSHOP_OPERATOR_ID", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("WORKSHOP_OPERATOR_ID: %w", err)
		}
		cfg.OperatorID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the workshop calendar settings and derives Grid and
// Location from them. Configs built by hand must call it before use.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("WORKSHOP_TIMEZONE: %w", err)
	}
	start, err := domain.ParseTimeOfDay(c.DayStart)
	if err != nil {
		return fmt.Errorf("WORKSHOP_DAY_START: %w", err)
	}
	end, err := domain.ParseTimeOfDay(c.DayEnd)
	if err != nil {
		return fmt.Errorf("WORKSHOP_DAY_END: %w", err)
	}
	grid := domain.WorkdayGrid{
		Start:        start,
		End:          end,
		SlotDuration: time.Duration(c.SlotMinutes) * time.Minute,
	}
	if err := grid.Validate(); err != nil {
		return err
	}
	c.location = loc
	c.grid = grid
	return nil
}

// Grid returns the workshop's daily slot grid.
func (c *Config) Grid() domain.WorkdayGrid { return c.grid }

// Location returns the workshop's time zone.
func (c *Config) Location() *time.Location { return c.location }

// OutboxRetention converts OutboxRetentionDays for the processor.
func (c *Config) OutboxRetention() time.Duration {
	return time.Duration(c.OutboxRetentionDays) * 24 * time.Hour
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RemoteMode reports whether the CLI should talk to a running API server
// instead of opening the database itself.
func (c *Config) RemoteMode() bool {
	return c.APIURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
