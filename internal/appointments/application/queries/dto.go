package queries

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// AppointmentDTO is the read model of an appointment.
type AppointmentDTO struct {
	ID                 uuid.UUID  `json:"id"`
	VehiclePlate       string     `json:"vehicle_plate"`
	DriverID           uuid.UUID  `json:"driver_id"`
	CreatedBy          uuid.UUID  `json:"created_by"`
	ReasonForVisit     string     `json:"reason_for_visit"`
	TowRequested       bool       `json:"tow_requested"`
	TowAddress         string     `json:"tow_address,omitempty"`
	TowDispatched      bool       `json:"tow_dispatched"`
	Maintenance        bool       `json:"maintenance"`
	DamageImageRef     string     `json:"damage_image_ref,omitempty"`
	RequestedAt        *time.Time `json:"requested_at,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	AssignedMechanicID *uuid.UUID `json:"assigned_mechanic_id,omitempty"`
	Status             string     `json:"status"`
	ReschedulingReason string     `json:"rescheduling_reason,omitempty"`
	DurationMinutes    int        `json:"duration_minutes"`
	WorkOrderRef       string     `json:"work_order_ref,omitempty"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ToAppointmentDTO maps an aggregate to its read model.
func ToAppointmentDTO(a *domain.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:                 a.ID(),
		VehiclePlate:       a.VehiclePlate(),
		DriverID:           a.DriverID(),
		CreatedBy:          a.CreatedBy(),
		ReasonForVisit:     a.ReasonForVisit(),
		TowRequested:       a.TowRequested(),
		TowAddress:         a.TowAddress(),
		TowDispatched:      a.TowDispatched(),
		Maintenance:        a.Maintenance(),
		DamageImageRef:     a.DamageImageRef(),
		RequestedAt:        a.RequestedAt(),
		AssignedAt:         a.AssignedAt(),
		EndsAt:             a.EndsAt(),
		AssignedMechanicID: a.AssignedMechanicID(),
		Status:             a.Status().String(),
		ReschedulingReason: a.ReschedulingReason(),
		DurationMinutes:    a.DurationMinutes(),
		WorkOrderRef:       a.WorkOrderRef(),
		Version:            a.Version(),
		CreatedAt:          a.CreatedAt(),
		UpdatedAt:          a.UpdatedAt(),
	}
}

// MechanicDTO is the read model of a mechanic.
type MechanicDTO struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// ToMechanicDTO maps a mechanic to its read model.
func ToMechanicDTO(m domain.Mechanic) MechanicDTO {
	return MechanicDTO{ID: m.ID, Name: m.Name, Active: m.Active}
}

// AppointmentContext is what an operator needs to assign an appointment.
type AppointmentContext struct {
	Appointment AppointmentDTO `json:"appointment"`
	Mechanics   []MechanicDTO  `json:"mechanics"`
}

// StatusChangeDTO is one history entry.
type StatusChangeDTO struct {
	ID         uuid.UUID `json:"id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
	OperatorID uuid.UUID `json:"operator_id"`
	Comment    string    `json:"comment,omitempty"`
}

// BookedSlotDTO is one instant held on a mechanic's agenda.
type BookedSlotDTO struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	At            time.Time `json:"at"`
}
