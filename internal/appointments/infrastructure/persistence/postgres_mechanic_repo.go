package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// PostgresMechanicRepository implements domain.MechanicRepository using PostgreSQL.
type PostgresMechanicRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMechanicRepository creates a new PostgreSQL mechanic repository.
func NewPostgresMechanicRepository(pool *pgxpool.Pool) *PostgresMechanicRepository {
	return &PostgresMechanicRepository{pool: pool}
}

var _ domain.MechanicRepository = (*PostgresMechanicRepository)(nil)

// Save upserts a mechanic.
func (r *PostgresMechanicRepository) Save(ctx context.Context, mechanic *domain.Mechanic) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO mechanics (id, name, active, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active
	`, mechanic.ID, mechanic.Name, mechanic.Active, mechanic.CreatedAt)
	if err != nil {
		return fmt.Errorf("save mechanic: %w", err)
	}
	return nil
}

// FindByID retrieves a mechanic, active or not.
func (r *PostgresMechanicRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Mechanic, error) {
	var m domain.Mechanic
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, active, created_at FROM mechanics WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// ListEligible returns active mechanics ordered by name.
func (r *PostgresMechanicRepository) ListEligible(ctx context.Context) ([]domain.Mechanic, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT id, name, active, created_at
		FROM mechanics
		WHERE active
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Mechanic
	for rows.Next() {
		var m domain.Mechanic
		if err := rows.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		result = append(result, m)
	}
	return result, rows.Err()
}
