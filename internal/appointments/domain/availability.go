package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MinimumLeadTime keeps slots that are about to start out of today's offer.
const MinimumLeadTime = 5 * time.Minute

// BookedSlot is one instant already held on a mechanic's agenda.
type BookedSlot struct {
	AppointmentID uuid.UUID
	MechanicID    uuid.UUID
	At            time.Time
}

// AvailabilityResolver narrows the day grid to the slots an operator may offer.
// It keeps no state between calls. Every Resolve reads the agenda again.
type AvailabilityResolver struct {
	grid     WorkdayGrid
	loc      *time.Location
	leadTime time.Duration
	agenda   AgendaReader
	now      func() time.Time
}

// ResolverOption customises an AvailabilityResolver.
type ResolverOption func(*AvailabilityResolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *AvailabilityResolver) { r.now = now }
}

// WithLeadTime overrides MinimumLeadTime.
func WithLeadTime(d time.Duration) ResolverOption {
	return func(r *AvailabilityResolver) { r.leadTime = d }
}

// NewAvailabilityResolver creates a resolver reading booked slots from agenda.
func NewAvailabilityResolver(grid WorkdayGrid, loc *time.Location, agenda AgendaReader, opts ...ResolverOption) *AvailabilityResolver {
	if loc == nil {
		loc = time.Local
	}
	r := &AvailabilityResolver{
		grid:     grid,
		loc:      loc,
		leadTime: MinimumLeadTime,
		agenda:   agenda,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Grid returns the workday grid the resolver offers from.
func (r *AvailabilityResolver) Grid() WorkdayGrid { return r.grid }

// Location returns the workshop time zone.
func (r *AvailabilityResolver) Location() *time.Location { return r.loc }

// Resolve fetches the mechanic's booked slots for day and returns what is
// still offerable. A fetch failure yields no slots: offering a slot that might
// already be taken is worse than offering none.
func (r *AvailabilityResolver) Resolve(ctx context.Context, mechanicID uuid.UUID, day time.Time, exclude uuid.UUID) ([]time.Time, error) {
	from, to := DayBounds(day, r.loc)
	booked, err := r.agenda.BookedSlots(ctx, mechanicID, from, to)
	if err != nil {
		var de *Error
		if errors.As(err, &de) && de.Kind == KindBackendUnavailable {
			return nil, de
		}
		return nil, NewUnavailableError("agenda_fetch_failed", err)
	}
	return r.Offerable(day, booked, exclude), nil
}

// Offerable removes booked instants from the grid for day. Booked entries
// owned by exclude are ignored so an appointment never collides with itself.
// Slots starting at or before now plus the lead time are dropped too, so a
// past day offers nothing.
func (r *AvailabilityResolver) Offerable(day time.Time, booked []BookedSlot, exclude uuid.UUID) []time.Time {
	taken := make(map[int64]struct{}, len(booked))
	for _, b := range booked {
		if exclude != uuid.Nil && b.AppointmentID == exclude {
			continue
		}
		taken[b.At.UnixNano()] = struct{}{}
	}

	cutoff := r.cutoff()
	grid := r.grid.Slots(day, r.loc)
	offerable := make([]time.Time, 0, len(grid))
	for _, slot := range grid {
		if _, ok := taken[slot.UnixNano()]; ok {
			continue
		}
		if !slot.After(cutoff) {
			continue
		}
		offerable = append(offerable, slot)
	}
	return offerable
}

// CheckInstant rejects an instant at or before now plus the lead time.
func (r *AvailabilityResolver) CheckInstant(at time.Time) error {
	if !at.After(r.cutoff()) {
		return ErrAssignedInPast
	}
	return nil
}

// CheckSlot explains why at is missing from offerable, the result of a
// Resolve for at's day. A grid instant that is late enough but not offered is
// held by another appointment and yields a slot conflict; anything off the
// grid is not offerable.
func (r *AvailabilityResolver) CheckSlot(at time.Time, offerable []time.Time) error {
	if ContainsInstant(offerable, at) {
		return nil
	}
	if err := r.CheckInstant(at); err != nil {
		return err
	}
	if ContainsInstant(r.grid.Slots(at, r.loc), at) {
		return NewSlotConflictError(nil)
	}
	return ErrSlotNotOfferable
}

func (r *AvailabilityResolver) cutoff() time.Time {
	return r.now().Add(r.leadTime)
}

// ContainsInstant reports whether at is one of slots.
func ContainsInstant(slots []time.Time, at time.Time) bool {
	for _, s := range slots {
		if s.Equal(at) {
			return true
		}
	}
	return false
}
