package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

const defaultListLimit = 100

// ListAppointmentsQuery filters appointments. Empty fields do not filter.
type ListAppointmentsQuery struct {
	Status     string
	MechanicID uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
}

// ListAppointmentsHandler handles the ListAppointmentsQuery.
type ListAppointmentsHandler struct {
	appointmentRepo domain.AppointmentRepository
}

// NewListAppointmentsHandler creates a new ListAppointmentsHandler.
func NewListAppointmentsHandler(appointmentRepo domain.AppointmentRepository) *ListAppointmentsHandler {
	return &ListAppointmentsHandler{appointmentRepo: appointmentRepo}
}

// Handle executes the ListAppointmentsQuery.
func (h *ListAppointmentsHandler) Handle(ctx context.Context, query ListAppointmentsQuery) ([]AppointmentDTO, error) {
	filter := domain.AppointmentFilter{
		MechanicID: query.MechanicID,
		From:       query.From,
		To:         query.To,
		Limit:      query.Limit,
	}
	if query.Status != "" {
		status, err := domain.ParseStatus(query.Status)
		if err != nil {
			return nil, &domain.Error{
				Kind:    domain.KindValidation,
				Code:    "invalid_status",
				Field:   "status",
				Message: err.Error(),
			}
		}
		filter.Status = status
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	appointments, err := h.appointmentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make([]AppointmentDTO, 0, len(appointments))
	for _, a := range appointments {
		result = append(result, ToAppointmentDTO(a))
	}
	return result, nil
}
