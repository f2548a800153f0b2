package app

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/persistence"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// Repositories is the storage one container runs on. Every member shares
// the same backend so a unit of work spans all of them.
type Repositories struct {
	Appointments domain.AppointmentRepository
	Agenda       domain.AgendaReader
	Mechanics    domain.MechanicRepository
	History      domain.HistoryRepository
	Outbox       outbox.Repository
	UnitOfWork   sharedApplication.UnitOfWork
}

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	driver database.Driver
	pool   *pgxpool.Pool
	db     *sql.DB
}

// NewPostgresRepositoryFactory creates a factory over a pgx pool.
func NewPostgresRepositoryFactory(pool *pgxpool.Pool) *RepositoryFactory {
	return &RepositoryFactory{driver: database.DriverPostgres, pool: pool}
}

// NewSQLiteRepositoryFactory creates a factory over a SQLite database.
func NewSQLiteRepositoryFactory(db *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{driver: database.DriverSQLite, db: db}
}

// Driver returns the backend the factory builds for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// Build creates every repository for the configured driver.
func (f *RepositoryFactory) Build() (Repositories, error) {
	switch f.driver {
	case database.DriverPostgres:
		if f.pool == nil {
			return Repositories{}, fmt.Errorf("postgres pool not available")
		}
		appointments := persistence.NewPostgresAppointmentRepository(f.pool)
		return Repositories{
			Appointments: appointments,
			Agenda:       appointments,
			Mechanics:    persistence.NewPostgresMechanicRepository(f.pool),
			History:      persistence.NewPostgresHistoryRepository(f.pool),
			Outbox:       outbox.NewPostgresRepository(f.pool),
			UnitOfWork:   sharedPersistence.NewPostgresUnitOfWork(f.pool),
		}, nil

	case database.DriverSQLite:
		if f.db == nil {
			return Repositories{}, fmt.Errorf("sqlite database not available")
		}
		appointments := persistence.NewSQLiteAppointmentRepository(f.db)
		return Repositories{
			Appointments: appointments,
			Agenda:       appointments,
			Mechanics:    persistence.NewSQLiteMechanicRepository(f.db),
			History:      persistence.NewSQLiteHistoryRepository(f.db),
			Outbox:       outbox.NewSQLiteRepository(f.db),
			UnitOfWork:   sharedPersistence.NewSQLiteUnitOfWork(f.db),
		}, nil

	default:
		return Repositories{}, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// InMemoryRepositories returns process-local repositories for tests and
// demos. Transactions are not isolated.
func InMemoryRepositories() Repositories {
	store := persistence.NewInMemoryStore()
	appointments := store.Appointments()
	return Repositories{
		Appointments: appointments,
		Agenda:       appointments,
		Mechanics:    store.Mechanics(),
		History:      store.History(),
		Outbox:       outbox.NewInMemoryRepository(),
		UnitOfWork:   sharedApplication.NoopUnitOfWork{},
	}
}
