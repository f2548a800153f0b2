package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// SQLiteMechanicRepository implements domain.MechanicRepository on SQLite.
type SQLiteMechanicRepository struct {
	db *sql.DB
}

// NewSQLiteMechanicRepository creates a SQLite mechanic repository.
func NewSQLiteMechanicRepository(db *sql.DB) *SQLiteMechanicRepository {
	return &SQLiteMechanicRepository{db: db}
}

var _ domain.MechanicRepository = (*SQLiteMechanicRepository)(nil)

func (r *SQLiteMechanicRepository) Save(ctx context.Context, mechanic *domain.Mechanic) error {
	_, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO mechanics (id, name, active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active
	`, mechanic.ID.String(), mechanic.Name, mechanic.Active, sharedPersistence.FormatTime(mechanic.CreatedAt))
	if err != nil {
		return fmt.Errorf("save mechanic: %w", err)
	}
	return nil
}

func (r *SQLiteMechanicRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Mechanic, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM mechanics WHERE id = ?`, id.String())
	m, err := scanSQLiteMechanic(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteMechanicRepository) ListEligible(ctx context.Context) ([]domain.Mechanic, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, active, created_at
		FROM mechanics
		WHERE active = 1
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Mechanic
	for rows.Next() {
		m, err := scanSQLiteMechanic(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanSQLiteMechanic(row rowScanner) (domain.Mechanic, error) {
	var (
		m             domain.Mechanic
		id, createdAt string
	)
	if err := row.Scan(&id, &m.Name, &m.Active, &createdAt); err != nil {
		return domain.Mechanic{}, err
	}
	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return domain.Mechanic{}, fmt.Errorf("mechanic id: %w", err)
	}
	if m.CreatedAt, err = sharedPersistence.ParseTime(createdAt); err != nil {
		return domain.Mechanic{}, err
	}
	return m, nil
}
