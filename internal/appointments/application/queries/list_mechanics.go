package queries

import (
	"context"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// ListMechanicsHandler lists the mechanics that can take appointments.
type ListMechanicsHandler struct {
	mechanicRepo domain.MechanicRepository
}

// NewListMechanicsHandler creates a new ListMechanicsHandler.
func NewListMechanicsHandler(mechanicRepo domain.MechanicRepository) *ListMechanicsHandler {
	return &ListMechanicsHandler{mechanicRepo: mechanicRepo}
}

// Handle returns eligible mechanics.
func (h *ListMechanicsHandler) Handle(ctx context.Context) ([]MechanicDTO, error) {
	mechanics, err := h.mechanicRepo.ListEligible(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]MechanicDTO, 0, len(mechanics))
	for _, m := range mechanics {
		result = append(result, ToMechanicDTO(m))
	}
	return result, nil
}
