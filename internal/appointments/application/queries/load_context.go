package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// LoadContextQuery asks for an appointment and the mechanics it can go to.
type LoadContextQuery struct {
	AppointmentID uuid.UUID
}

// LoadContextHandler handles the LoadContextQuery.
type LoadContextHandler struct {
	appointmentRepo domain.AppointmentRepository
	mechanicRepo    domain.MechanicRepository
}

// NewLoadContextHandler creates a new LoadContextHandler.
func NewLoadContextHandler(appointmentRepo domain.AppointmentRepository, mechanicRepo domain.MechanicRepository) *LoadContextHandler {
	return &LoadContextHandler{appointmentRepo: appointmentRepo, mechanicRepo: mechanicRepo}
}

// Handle executes the LoadContextQuery.
func (h *LoadContextHandler) Handle(ctx context.Context, query LoadContextQuery) (*AppointmentContext, error) {
	appointment, err := h.appointmentRepo.FindByID(ctx, query.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError("appointment", query.AppointmentID.String())
	}

	mechanics, err := h.mechanicRepo.ListEligible(ctx)
	if err != nil {
		return nil, err
	}

	result := &AppointmentContext{
		Appointment: ToAppointmentDTO(appointment),
		Mechanics:   make([]MechanicDTO, 0, len(mechanics)),
	}
	for _, m := range mechanics {
		result.Mechanics = append(result.Mechanics, ToMechanicDTO(m))
	}
	return result, nil
}
