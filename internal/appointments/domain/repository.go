package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter narrows List. Zero values do not filter.
type AppointmentFilter struct {
	Status     Status
	MechanicID uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
}

// AppointmentRepository persists appointments. Save is the backend's
// check-and-set: it fails with ErrStaleState when the stored version moved
// and with ErrSlotConflict when another confirmed appointment holds the
// same mechanic and instant.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *Appointment) error
	Save(ctx context.Context, appointment *Appointment) error
	// FindByID returns nil, nil when the appointment does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	HasActiveForVehicle(ctx context.Context, plate string) (bool, error)
	List(ctx context.Context, filter AppointmentFilter) ([]*Appointment, error)
}

// AgendaReader returns the instants a mechanic already holds in [from, to).
type AgendaReader interface {
	BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]BookedSlot, error)
}

// MechanicRepository persists mechanics.
type MechanicRepository interface {
	Save(ctx context.Context, mechanic *Mechanic) error
	// FindByID returns nil, nil when the mechanic does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Mechanic, error)
	ListEligible(ctx context.Context) ([]Mechanic, error)
}

// HistoryRepository stores the status provenance log.
type HistoryRepository interface {
	Append(ctx context.Context, change StatusChange) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]StatusChange, error)
}
