package api

import (
	"time"

	"github.com/google/uuid"
)

// Header names shared by the server and the remote client.
const (
	HeaderOperatorID    = "X-Operator-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

// RequestAppointmentRequest is the intake body.
type RequestAppointmentRequest struct {
	VehiclePlate   string     `json:"vehicle_plate"`
	DriverID       uuid.UUID  `json:"driver_id"`
	ReasonForVisit string     `json:"reason_for_visit"`
	TowRequested   bool       `json:"tow_requested"`
	TowAddress     string     `json:"tow_address,omitempty"`
	Maintenance    bool       `json:"maintenance"`
	DamageImageRef string     `json:"damage_image_ref,omitempty"`
	RequestedAt    *time.Time `json:"requested_at,omitempty"`
}

// AssignRequest confirms an appointment with a mechanic and a slot.
type AssignRequest struct {
	MechanicID *uuid.UUID `json:"mechanic_id,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// CancelRequest cancels an appointment.
type CancelRequest struct {
	Comment string `json:"comment,omitempty"`
}

// RegisterMechanicRequest adds a mechanic to the directory.
type RegisterMechanicRequest struct {
	Name string `json:"name"`
}

// SetMechanicActiveRequest toggles whether a mechanic can take appointments.
type SetMechanicActiveRequest struct {
	Active bool `json:"active"`
}

// ErrorBody carries a structured scheduling error.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
