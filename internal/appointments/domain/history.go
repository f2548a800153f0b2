package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is one entry of an appointment's provenance log.
type StatusChange struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Status        Status
	OccurredAt    time.Time
	OperatorID    uuid.UUID
	Comment       string
}

// NewStatusChange records that appointmentID reached status.
func NewStatusChange(appointmentID uuid.UUID, status Status, operatorID uuid.UUID, comment string, at time.Time) StatusChange {
	return StatusChange{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		Status:        status,
		OccurredAt:    at.UTC(),
		OperatorID:    operatorID,
		Comment:       comment,
	}
}
