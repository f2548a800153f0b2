package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// SQLite names the violated columns rather than the index.
const (
	sqliteSlotColumns    = "appointments.assigned_mechanic_id"
	sqliteVehicleColumns = "appointments.vehicle_plate"
)

const sqliteAppointmentColumns = `
	id, vehicle_plate, driver_id, created_by, reason_for_visit,
	tow_requested, tow_address, tow_dispatched, maintenance, damage_image_ref,
	requested_at, assigned_at, assigned_mechanic_id, status, rescheduling_reason,
	duration_minutes, work_order_ref, version, created_at, updated_at`

// SQLiteAppointmentRepository implements domain.AppointmentRepository and
// domain.AgendaReader on SQLite.
type SQLiteAppointmentRepository struct {
	db *sql.DB
}

// NewSQLiteAppointmentRepository creates a SQLite appointment repository.
func NewSQLiteAppointmentRepository(db *sql.DB) *SQLiteAppointmentRepository {
	return &SQLiteAppointmentRepository{db: db}
}

var (
	_ domain.AppointmentRepository = (*SQLiteAppointmentRepository)(nil)
	_ domain.AgendaReader          = (*SQLiteAppointmentRepository)(nil)
)

func (r *SQLiteAppointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	s := appointment.Snapshot()
	_, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO appointments (`+sqliteAppointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID.String(),
		s.VehiclePlate,
		nullUUID(s.DriverID),
		nullUUID(s.CreatedBy),
		s.ReasonForVisit,
		s.TowRequested,
		s.TowAddress,
		s.TowDispatched,
		s.Maintenance,
		s.DamageImageRef,
		sharedPersistence.FormatTimePtr(s.RequestedAt),
		sharedPersistence.FormatTimePtr(s.AssignedAt),
		nullUUIDPtr(s.AssignedMechanicID),
		string(s.Status),
		s.ReschedulingReason,
		s.DurationMinutes,
		s.WorkOrderRef,
		s.Version,
		sharedPersistence.FormatTime(s.CreatedAt),
		sharedPersistence.FormatTime(s.UpdatedAt),
	)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, sqliteVehicleColumns):
		return domain.ErrActiveAppointmentExists
	case database.IsUniqueViolation(err, sqliteSlotColumns):
		return domain.NewSlotConflictError(err)
	default:
		return fmt.Errorf("insert appointment: %w", err)
	}
}

func (r *SQLiteAppointmentRepository) Save(ctx context.Context, appointment *domain.Appointment) error {
	s := appointment.Snapshot()
	res, err := sharedPersistence.SQLiteExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE appointments SET
			tow_dispatched = ?,
			assigned_at = ?,
			assigned_mechanic_id = ?,
			status = ?,
			rescheduling_reason = ?,
			work_order_ref = ?,
			updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`,
		s.TowDispatched,
		sharedPersistence.FormatTimePtr(s.AssignedAt),
		nullUUIDPtr(s.AssignedMechanicID),
		string(s.Status),
		s.ReschedulingReason,
		s.WorkOrderRef,
		sharedPersistence.FormatTime(s.UpdatedAt),
		s.ID.String(),
		s.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err, sqliteSlotColumns) {
			return domain.NewSlotConflictError(err)
		}
		if database.IsUniqueViolation(err, sqliteVehicleColumns) {
			return domain.ErrActiveAppointmentExists
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewStaleStateError(s.Version)
	}
	appointment.IncrementVersion()
	return nil
}

func (r *SQLiteAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	row := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+sqliteAppointmentColumns+` FROM appointments WHERE id = ?`, id.String())
	a, err := scanSQLiteAppointment(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteAppointmentRepository) HasActiveForVehicle(ctx context.Context, plate string) (bool, error) {
	var exists bool
	err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE vehicle_plate = ? AND status IN ('Programado', 'Confirmado')
		)
	`, domain.NormalizePlate(plate)).Scan(&exists)
	return exists, err
}

func (r *SQLiteAppointmentRepository) List(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MechanicID != uuid.Nil {
		where = append(where, "assigned_mechanic_id = ?")
		args = append(args, filter.MechanicID.String())
	}
	if !filter.From.IsZero() {
		where = append(where, "assigned_at >= ?")
		args = append(args, sharedPersistence.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "assigned_at < ?")
		args = append(args, sharedPersistence.FormatTime(filter.To))
	}

	query := `SELECT ` + sqliteAppointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Appointment
	for rows.Next() {
		a, err := scanSQLiteAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *SQLiteAppointmentRepository) BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	rows, err := sharedPersistence.SQLiteExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, assigned_at
		FROM appointments
		WHERE assigned_mechanic_id = ?
		  AND status IN ('Confirmado', 'Finalizado')
		  AND assigned_at >= ? AND assigned_at < ?
		ORDER BY assigned_at
	`, mechanicID.String(), sharedPersistence.FormatTime(from), sharedPersistence.FormatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.BookedSlot
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		slot := domain.BookedSlot{MechanicID: mechanicID}
		if slot.AppointmentID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if slot.At, err = sharedPersistence.ParseTime(at); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		s                                  domain.AppointmentSnapshot
		id, status, createdAt, updatedAt   string
		driverID, createdBy, mechanicID    sql.NullString
		requestedAt, assignedAt            sql.NullString
		towRequested, towDispatched, maint bool
	)
	err := row.Scan(
		&id, &s.VehiclePlate, &driverID, &createdBy, &s.ReasonForVisit,
		&towRequested, &s.TowAddress, &towDispatched, &maint, &s.DamageImageRef,
		&requestedAt, &assignedAt, &mechanicID, &status, &s.ReschedulingReason,
		&s.DurationMinutes, &s.WorkOrderRef, &s.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("appointment id: %w", err)
	}
	if s.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	s.TowRequested, s.TowDispatched, s.Maintenance = towRequested, towDispatched, maint
	s.DriverID = parseNullUUID(driverID)
	s.CreatedBy = parseNullUUID(createdBy)
	if mechanicID.Valid {
		mid := parseNullUUID(mechanicID)
		s.AssignedMechanicID = &mid
	}
	if s.RequestedAt, err = sharedPersistence.ParseTimePtr(requestedAt); err != nil {
		return nil, err
	}
	if s.AssignedAt, err = sharedPersistence.ParseTimePtr(assignedAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = sharedPersistence.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = sharedPersistence.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return domain.RehydrateAppointment(s), nil
}

func nullUUID(id uuid.UUID) sql.NullString {
	if id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func nullUUIDPtr(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return nullUUID(*id)
}

func parseNullUUID(s sql.NullString) uuid.UUID {
	if !s.Valid {
		return uuid.Nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return uuid.Nil
	}
	return id
}
