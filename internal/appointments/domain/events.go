package domain

import (
	"time"

	sharedDomain "github.com/fleetworks/workshop/internal/shared/domain"
	"github.com/google/uuid"
)

// AggregateType identifies appointments in the outbox.
const AggregateType = "appointment"

// Routing keys published on the workshop exchange.
const (
	RoutingKeyAppointmentRequested   = "appointments.appointment.requested"
	RoutingKeyAppointmentConfirmed   = "appointments.appointment.confirmed"
	RoutingKeyAppointmentRescheduled = "appointments.appointment.rescheduled"
	RoutingKeyAppointmentCancelled   = "appointments.appointment.cancelled"
	RoutingKeyAppointmentCompleted   = "appointments.appointment.completed"
	RoutingKeyTowDispatched          = "appointments.appointment.tow_dispatched"
)

// AppointmentRequested is raised at intake.
type AppointmentRequested struct {
	sharedDomain.BaseEvent
	VehiclePlate  string     `json:"vehicle_plate"`
	DriverID      uuid.UUID  `json:"driver_id"`
	RequestedAt   *time.Time `json:"requested_at,omitempty"`
	TowRequested  bool       `json:"tow_requested"`
	Maintenance   bool       `json:"maintenance"`
	ReasonOfVisit string     `json:"reason_for_visit"`
}

// AppointmentConfirmed is raised on every successful assignment.
type AppointmentConfirmed struct {
	sharedDomain.BaseEvent
	MechanicID   uuid.UUID `json:"mechanic_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	VehiclePlate string    `json:"vehicle_plate"`
}

// AppointmentRescheduled is raised when an assignment moves a previously recorded instant.
type AppointmentRescheduled struct {
	sharedDomain.BaseEvent
	MechanicID   uuid.UUID `json:"mechanic_id"`
	PreviousAt   time.Time `json:"previous_at"`
	AssignedAt   time.Time `json:"assigned_at"`
	Reason       string    `json:"reason"`
	VehiclePlate string    `json:"vehicle_plate"`
}

// AppointmentCancelled is raised when the appointment is cancelled.
type AppointmentCancelled struct {
	sharedDomain.BaseEvent
	PreviousStatus Status `json:"previous_status"`
	VehiclePlate   string `json:"vehicle_plate"`
}

// AppointmentCompleted is raised when check-in turns the appointment into a work order.
type AppointmentCompleted struct {
	sharedDomain.BaseEvent
	WorkOrderRef string `json:"work_order_ref"`
	VehiclePlate string `json:"vehicle_plate"`
}

// TowDispatched is raised when a tow truck is sent for the vehicle.
type TowDispatched struct {
	sharedDomain.BaseEvent
	TowAddress   string `json:"tow_address"`
	VehiclePlate string `json:"vehicle_plate"`
}

func newEvent(id uuid.UUID, routingKey string, at time.Time) sharedDomain.BaseEvent {
	return sharedDomain.NewBaseEvent(id, AggregateType, routingKey, at)
}
