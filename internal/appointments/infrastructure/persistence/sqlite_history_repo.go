package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// SQLiteHistoryRepository implements domain.HistoryRepository on SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a SQLite history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

var _ domain.HistoryRepository = (*SQLiteHistoryRepository)(nil)

func (r *SQLiteHistoryRepository) Append(ctx context.Context, change domain.StatusChange) error {
	_, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO appointment_status_history (id, appointment_id, status, occurred_at, operator_id, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		change.ID.String(),
		change.AppointmentID.String(),
		string(change.Status),
		sharedPersistence.FormatTime(change.OccurredAt),
		nullUUID(change.OperatorID),
		change.Comment,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func (r *SQLiteHistoryRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, status, occurred_at, operator_id, comment
		FROM appointment_status_history
		WHERE appointment_id = ?
		ORDER BY occurred_at, rowid
	`, appointmentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var (
			id, status, occurredAt string
			operatorID             sql.NullString
		)
		change := domain.StatusChange{AppointmentID: appointmentID}
		if err := rows.Scan(&id, &status, &occurredAt, &operatorID, &change.Comment); err != nil {
			return nil, err
		}
		if change.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		change.Status = domain.Status(status)
		change.OperatorID = parseNullUUID(operatorID)
		if change.OccurredAt, err = sharedPersistence.ParseTime(occurredAt); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
