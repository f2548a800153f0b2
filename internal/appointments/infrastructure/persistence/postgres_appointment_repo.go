package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/database"
	sharedPersistence "github.com/fleetworks/workshop/internal/shared/infrastructure/persistence"
)

// Index names from the appointments migration.
const (
	slotIndex    = "ux_appointments_mechanic_slot"
	vehicleIndex = "ux_appointments_vehicle_active"
)

const pgAppointmentColumns = `
	id, vehicle_plate, driver_id, created_by, reason_for_visit,
	tow_requested, tow_address, tow_dispatched, maintenance, damage_image_ref,
	requested_at, assigned_at, assigned_mechanic_id, status, rescheduling_reason,
	duration_minutes, work_order_ref, version, created_at, updated_at`

// PostgresAppointmentRepository implements domain.AppointmentRepository and
// domain.AgendaReader using PostgreSQL.
type PostgresAppointmentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAppointmentRepository creates a new PostgreSQL appointment repository.
func NewPostgresAppointmentRepository(pool *pgxpool.Pool) *PostgresAppointmentRepository {
	return &PostgresAppointmentRepository{pool: pool}
}

var (
	_ domain.AppointmentRepository = (*PostgresAppointmentRepository)(nil)
	_ domain.AgendaReader          = (*PostgresAppointmentRepository)(nil)
)

// appointmentRow represents a database row for appointments.
type appointmentRow struct {
	ID                 uuid.UUID
	VehiclePlate       string
	DriverID           *uuid.UUID
	CreatedBy          *uuid.UUID
	ReasonForVisit     string
	TowRequested       bool
	TowAddress         string
	TowDispatched      bool
	Maintenance        bool
	DamageImageRef     string
	RequestedAt        *time.Time
	AssignedAt         *time.Time
	AssignedMechanicID *uuid.UUID
	Status             string
	ReschedulingReason string
	DurationMinutes    int
	WorkOrderRef       string
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Create inserts a new appointment.
func (r *PostgresAppointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	s := appointment.Snapshot()
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointments (`+pgAppointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		s.ID,
		s.VehiclePlate,
		optionalUUID(s.DriverID),
		optionalUUID(s.CreatedBy),
		s.ReasonForVisit,
		s.TowRequested,
		s.TowAddress,
		s.TowDispatched,
		s.Maintenance,
		s.DamageImageRef,
		s.RequestedAt,
		s.AssignedAt,
		s.AssignedMechanicID,
		string(s.Status),
		s.ReschedulingReason,
		s.DurationMinutes,
		s.WorkOrderRef,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, vehicleIndex):
		return domain.ErrActiveAppointmentExists
	case database.IsUniqueViolation(err, slotIndex):
		return domain.NewSlotConflictError(err)
	default:
		return fmt.Errorf("insert appointment: %w", err)
	}
}

// Save writes the mutable fields when the stored version still matches.
func (r *PostgresAppointmentRepository) Save(ctx context.Context, appointment *domain.Appointment) error {
	s := appointment.Snapshot()
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET
			tow_dispatched = $3,
			assigned_at = $4,
			assigned_mechanic_id = $5,
			status = $6,
			rescheduling_reason = $7,
			work_order_ref = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $1 AND version = $2
	`,
		s.ID,
		s.Version,
		s.TowDispatched,
		s.AssignedAt,
		s.AssignedMechanicID,
		string(s.Status),
		s.ReschedulingReason,
		s.WorkOrderRef,
		s.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, slotIndex) {
			return domain.NewSlotConflictError(err)
		}
		if database.IsUniqueViolation(err, vehicleIndex) {
			return domain.ErrActiveAppointmentExists
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStaleStateError(s.Version)
	}
	appointment.IncrementVersion()
	return nil
}

// FindByID retrieves an appointment by its ID.
func (r *PostgresAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx,
		`SELECT `+pgAppointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	result, err := collectAppointments(rows)
	if err != nil || len(result) == 0 {
		return nil, err
	}
	return result[0], nil
}

func (r *PostgresAppointmentRepository) HasActiveForVehicle(ctx context.Context, plate string) (bool, error) {
	var exists bool
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE vehicle_plate = $1 AND status IN ('Programado', 'Confirmado')
		)
	`, domain.NormalizePlate(plate)).Scan(&exists)
	return exists, err
}

// List returns appointments matching filter, newest first.
func (r *PostgresAppointmentRepository) List(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.MechanicID != uuid.Nil {
		where = append(where, "assigned_mechanic_id = "+arg(filter.MechanicID))
	}
	if !filter.From.IsZero() {
		where = append(where, "assigned_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "assigned_at < "+arg(filter.To))
	}

	query := `SELECT ` + pgAppointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// BookedSlots returns the confirmed and finished appointments of a mechanic in [from, to).
func (r *PostgresAppointmentRepository) BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT id, assigned_at
		FROM appointments
		WHERE assigned_mechanic_id = $1
		  AND status IN ('Confirmado', 'Finalizado')
		  AND assigned_at >= $2 AND assigned_at < $3
		ORDER BY assigned_at
	`, mechanicID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.BookedSlot
	for rows.Next() {
		slot := domain.BookedSlot{MechanicID: mechanicID}
		if err := rows.Scan(&slot.AppointmentID, &slot.At); err != nil {
			return nil, err
		}
		slot.At = slot.At.UTC()
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func collectAppointments(rows pgRows) ([]*domain.Appointment, error) {
	defer rows.Close()

	var result []*domain.Appointment
	for rows.Next() {
		var row appointmentRow
		err := rows.Scan(
			&row.ID, &row.VehiclePlate, &row.DriverID, &row.CreatedBy, &row.ReasonForVisit,
			&row.TowRequested, &row.TowAddress, &row.TowDispatched, &row.Maintenance, &row.DamageImageRef,
			&row.RequestedAt, &row.AssignedAt, &row.AssignedMechanicID, &row.Status, &row.ReschedulingReason,
			&row.DurationMinutes, &row.WorkOrderRef, &row.Version, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (row appointmentRow) toDomain() (*domain.Appointment, error) {
	status, err := domain.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateAppointment(domain.AppointmentSnapshot{
		ID:                 row.ID,
		VehiclePlate:       row.VehiclePlate,
		DriverID:           derefUUID(row.DriverID),
		CreatedBy:          derefUUID(row.CreatedBy),
		ReasonForVisit:     row.ReasonForVisit,
		TowRequested:       row.TowRequested,
		TowAddress:         row.TowAddress,
		TowDispatched:      row.TowDispatched,
		Maintenance:        row.Maintenance,
		DamageImageRef:     row.DamageImageRef,
		RequestedAt:        row.RequestedAt,
		AssignedAt:         row.AssignedAt,
		AssignedMechanicID: row.AssignedMechanicID,
		Status:             status,
		ReschedulingReason: row.ReschedulingReason,
		DurationMinutes:    row.DurationMinutes,
		WorkOrderRef:       row.WorkOrderRef,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}), nil
}

func optionalUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
