package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
	"github.com/fleetworks/workshop/internal/appointments/application/services"
	"github.com/fleetworks/workshop/internal/appointments/application/subscribers"
	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/cache"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/resilience"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/convert"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/eventbus"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/migrations"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
	"github.com/fleetworks/workshop/pkg/config"
	"github.com/fleetworks/workshop/pkg/observability"
)

const postgresMaxConns = 10

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Storage
	Driver      database.Driver
	DB          *pgxpool.Pool
	SQLite      *sql.DB
	RedisClient *redis.Client
	Repos       Repositories

	cacheClient cache.Client

	// Decorated ports the handlers run on
	Agenda    *resilience.AgendaReader
	Mechanics domain.MechanicRepository
	Resolver  *domain.AvailabilityResolver

	// Events
	EventPublisher  eventbus.Publisher
	OutboxProcessor *outbox.Processor

	// Use cases
	Handlers            services.Handlers
	CompleteAppointment *commands.CompleteAppointmentHandler
	Scheduler           *services.AppointmentScheduler
	CheckInSubscriber   *subscribers.CheckInSubscriber
}

// NewContainer connects to the configured database, Redis and RabbitMQ and
// wires every handler. Redis and RabbitMQ are optional: without Redis the
// mechanic cache is skipped, and without RabbitMQ outbox events are
// delivered to in-process consumers.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	driver, err := database.ResolveDriver(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.Driver = driver

	var factory *RepositoryFactory
	switch driver {
	case database.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL, postgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = pool
		factory = NewPostgresRepositoryFactory(pool)
		c.Health.Register("database", observability.DatabaseHealthChecker(pool.Ping))
		logger.Info("connected to database", "driver", driver)

	case database.DriverSQLite:
		db, err := initSQLiteConnection(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		c.SQLite = db
		factory = NewSQLiteRepositoryFactory(db)
		c.Health.Register("database", observability.DatabaseHealthChecker(db.PingContext))
		logger.Info("connected to database", "driver", driver, "path", cfg.SQLitePath)
	}

	repos, err := factory.Build()
	if err != nil {
		c.Close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.IsProduction() {
				c.Close()
				return nil, fmt.Errorf("failed to connect to Redis: %w", err)
			}
			logger.Warn("Redis not available, mechanic cache disabled", "error", err)
		} else {
			c.RedisClient = client
			c.cacheClient = client
			c.Health.Register("redis", observability.DependencyHealthChecker("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
			logger.Info("connected to Redis")
		}
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, eventbus.DefaultExchange, logger)
		if err != nil {
			if cfg.IsProduction() {
				c.Close()
				return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			logger.Warn("RabbitMQ not available, delivering events in process", "error", err)
			c.EventPublisher = eventbus.NewInProcessEventBus(logger)
		} else {
			c.EventPublisher = publisher
		}
	} else {
		c.EventPublisher = eventbus.NewInProcessEventBus(logger)
	}

	c.wire(repos)
	return c, nil
}

// NewInMemoryContainer wires the handlers over in-memory repositories. It is
// used by tests and needs no external services.
func NewInMemoryContainer(cfg *config.Config, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:         cfg,
		Logger:         logger,
		Metrics:        observability.NewInMemoryMetrics(),
		Health:         observability.NewHealthRegistry(),
		EventPublisher: eventbus.NewInProcessEventBus(logger),
	}
	c.wire(InMemoryRepositories())
	return c
}

// wire builds the decorated ports, the handlers and the scheduler.
func (c *Container) wire(repos Repositories) {
	cfg := c.Config
	logger := c.Logger
	c.Repos = repos

	breakerCfg := resilience.BreakerConfig{
		Name:        "agenda",
		MaxFailures: convert.IntToUint32Clamped(cfg.BreakerMaxFailures, 1),
		OpenTimeout: cfg.BreakerOpenTimeout,
	}
	c.Agenda = resilience.NewAgendaReader(repos.Agenda, breakerCfg, c.Metrics, logger)
	c.Health.Register("agenda_breaker", func(ctx context.Context) observability.HealthCheckResult {
		if c.Agenda.State() == gobreaker.StateOpen {
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "circuit open"}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})

	c.Mechanics = repos.Mechanics
	if c.cacheClient != nil {
		c.Mechanics = cache.NewMechanicRepository(repos.Mechanics, c.cacheClient, cfg.MechanicCacheTTL, c.Metrics, logger)
	}

	c.Resolver = domain.NewAvailabilityResolver(cfg.Grid(), cfg.Location(), c.Agenda, domain.WithLeadTime(cfg.LeadTime))

	slotMinutes := int(cfg.Grid().SlotDuration.Minutes())
	c.Handlers = services.Handlers{
		RequestAppointment: commands.NewRequestAppointmentHandler(repos.Appointments, repos.History, repos.Outbox, repos.UnitOfWork, slotMinutes),
		SubmitAssignment:   commands.NewSubmitAssignmentHandler(repos.Appointments, repos.Mechanics, repos.History, repos.Outbox, c.Resolver, repos.UnitOfWork),
		SubmitCancellation: commands.NewSubmitCancellationHandler(repos.Appointments, repos.History, repos.Outbox, repos.UnitOfWork),
		DispatchTow:        commands.NewDispatchTowHandler(repos.Appointments, repos.History, repos.Outbox, repos.UnitOfWork),
		RegisterMechanic:   commands.NewRegisterMechanicHandler(c.Mechanics, repos.UnitOfWork),
		SetMechanicActive:  commands.NewSetMechanicActiveHandler(c.Mechanics, repos.UnitOfWork),

		LoadContext:        queries.NewLoadContextHandler(repos.Appointments, c.Mechanics),
		ListOfferableSlots: queries.NewListOfferableSlotsHandler(c.Mechanics, c.Resolver),
		GetAgenda:          queries.NewGetAgendaHandler(c.Agenda, cfg.Location()),
		GetHistory:         queries.NewGetHistoryHandler(repos.Appointments, repos.History),
		ListAppointments:   queries.NewListAppointmentsHandler(repos.Appointments),
		ListMechanics:      queries.NewListMechanicsHandler(c.Mechanics),
	}
	c.CompleteAppointment = commands.NewCompleteAppointmentHandler(repos.Appointments, repos.History, repos.Outbox, repos.UnitOfWork)
	c.Scheduler = services.NewAppointmentScheduler(c.Handlers, cfg.RequestTimeout, logger)
	c.CheckInSubscriber = subscribers.NewCheckInSubscriber(c.CompleteAppointment, logger)
	if bus, ok := c.EventPublisher.(*eventbus.InProcessEventBus); ok {
		bus.RegisterConsumer(c.CheckInSubscriber)
	}

	c.OutboxProcessor = outbox.NewProcessor(repos.Outbox, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval:     cfg.OutboxPollInterval,
		BatchSize:        cfg.OutboxBatchSize,
		MaxRetries:       cfg.OutboxMaxRetries,
		RetryBackoffBase: outbox.DefaultProcessorConfig().RetryBackoffBase,
		RetryBackoffMax:  outbox.DefaultProcessorConfig().RetryBackoffMax,
		Retention:        cfg.OutboxRetention(),
		CleanupInterval:  cfg.OutboxCleanupInterval,
	}, logger, outbox.WithMetrics(c.Metrics))
}

// Migrate applies the schema for the configured database.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	driver, err := database.ResolveDriver(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	logger.Info("running migrations", "driver", driver)

	switch driver {
	case database.DriverPostgres:
		if err := migrations.RunPostgres(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
	case database.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrations.RunSQLite(ctx, db); err != nil {
			return fmt.Errorf("sqlite migrations: %w", err)
		}
	}
	logger.Info("migrations completed", "driver", driver)
	return nil
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}

	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		} else {
			c.Logger.Info("SQLite connection closed")
		}
	}
}

// initSQLiteConnection opens the local database and applies its schema.
// Local mode is zero-config, so migrations run on every start.
func initSQLiteConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	logger.Debug("running SQLite migrations")
	if err := migrations.RunSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
