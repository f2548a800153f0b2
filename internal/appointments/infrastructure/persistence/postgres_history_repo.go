package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// PostgresHistoryRepository implements domain.HistoryRepository using PostgreSQL.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a new PostgreSQL history repository.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

var _ domain.HistoryRepository = (*PostgresHistoryRepository)(nil)

// Append writes one provenance entry.
func (r *PostgresHistoryRepository) Append(ctx context.Context, change domain.StatusChange) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment_status_history (id, appointment_id, status, occurred_at, operator_id, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		change.ID,
		change.AppointmentID,
		string(change.Status),
		change.OccurredAt,
		optionalUUID(change.OperatorID),
		change.Comment,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListByAppointment returns the log of an appointment in order.
func (r *PostgresHistoryRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT id, status, occurred_at, operator_id, comment
		FROM appointment_status_history
		WHERE appointment_id = $1
		ORDER BY occurred_at, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var (
			change     = domain.StatusChange{AppointmentID: appointmentID}
			status     string
			operatorID *uuid.UUID
		)
		if err := rows.Scan(&change.ID, &status, &change.OccurredAt, &operatorID, &change.Comment); err != nil {
			return nil, err
		}
		change.Status = domain.Status(status)
		change.OperatorID = derefUUID(operatorID)
		change.OccurredAt = change.OccurredAt.UTC()
		result = append(result, change)
	}
	return result, rows.Err()
}
