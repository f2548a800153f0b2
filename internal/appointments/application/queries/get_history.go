package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// GetHistoryQuery asks for the status log of an appointment.
type GetHistoryQuery struct {
	AppointmentID uuid.UUID
}

// GetHistoryHandler handles the GetHistoryQuery.
type GetHistoryHandler struct {
	appointmentRepo domain.AppointmentRepository
	historyRepo     domain.HistoryRepository
}

// NewGetHistoryHandler creates a new GetHistoryHandler.
func NewGetHistoryHandler(appointmentRepo domain.AppointmentRepository, historyRepo domain.HistoryRepository) *GetHistoryHandler {
	return &GetHistoryHandler{appointmentRepo: appointmentRepo, historyRepo: historyRepo}
}

// Handle returns history entries oldest first.
func (h *GetHistoryHandler) Handle(ctx context.Context, query GetHistoryQuery) ([]StatusChangeDTO, error) {
	appointment, err := h.appointmentRepo.FindByID(ctx, query.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError("appointment", query.AppointmentID.String())
	}

	changes, err := h.historyRepo.ListByAppointment(ctx, query.AppointmentID)
	if err != nil {
		return nil, err
	}

	result := make([]StatusChangeDTO, 0, len(changes))
	for _, c := range changes {
		result = append(result, StatusChangeDTO{
			ID:         c.ID,
			Status:     c.Status.String(),
			OccurredAt: c.OccurredAt,
			OperatorID: c.OperatorID,
			Comment:    c.Comment,
		})
	}
	return result, nil
}
