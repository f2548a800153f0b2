package queries

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// GetAgendaQuery asks for a mechanic's booked instants on a day.
type GetAgendaQuery struct {
	MechanicID uuid.UUID
	Day        time.Time
}

// GetAgendaHandler handles the GetAgendaQuery.
type GetAgendaHandler struct {
	agenda domain.AgendaReader
	loc    *time.Location
}

// NewGetAgendaHandler creates a new GetAgendaHandler.
func NewGetAgendaHandler(agenda domain.AgendaReader, loc *time.Location) *GetAgendaHandler {
	return &GetAgendaHandler{agenda: agenda, loc: loc}
}

// Handle executes the GetAgendaQuery.
func (h *GetAgendaHandler) Handle(ctx context.Context, query GetAgendaQuery) ([]BookedSlotDTO, error) {
	from, to := domain.DayBounds(query.Day, h.loc)
	booked, err := h.agenda.BookedSlots(ctx, query.MechanicID, from, to)
	if err != nil {
		return nil, err
	}

	sort.Slice(booked, func(i, j int) bool { return booked[i].At.Before(booked[j].At) })
	result := make([]BookedSlotDTO, 0, len(booked))
	for _, b := range booked {
		result = append(result, BookedSlotDTO{AppointmentID: b.AppointmentID, At: b.At})
	}
	return result, nil
}
