package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// ListOfferableSlotsQuery asks for a mechanic's free slots on a day.
type ListOfferableSlotsQuery struct {
	MechanicID uuid.UUID
	Day        time.Time
}

// ListOfferableSlotsHandler handles the ListOfferableSlotsQuery.
type ListOfferableSlotsHandler struct {
	mechanicRepo domain.MechanicRepository
	resolver     *domain.AvailabilityResolver
}

// NewListOfferableSlotsHandler creates a new ListOfferableSlotsHandler.
func NewListOfferableSlotsHandler(mechanicRepo domain.MechanicRepository, resolver *domain.AvailabilityResolver) *ListOfferableSlotsHandler {
	return &ListOfferableSlotsHandler{mechanicRepo: mechanicRepo, resolver: resolver}
}

// Handle executes the ListOfferableSlotsQuery. The result is advisory: the
// slot is checked again when an assignment is submitted.
func (h *ListOfferableSlotsHandler) Handle(ctx context.Context, query ListOfferableSlotsQuery) ([]time.Time, error) {
	mechanic, err := h.mechanicRepo.FindByID(ctx, query.MechanicID)
	if err != nil {
		return nil, err
	}
	if mechanic == nil {
		return nil, domain.NewNotFoundError("mechanic", query.MechanicID.String())
	}
	return h.resolver.Resolve(ctx, mechanic.ID, query.Day, uuid.Nil)
}
