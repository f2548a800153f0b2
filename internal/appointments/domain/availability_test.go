package domain_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAgendaReader struct {
	mock.Mock
}

func (m *mockAgendaReader) BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	args := m.Called(ctx, mechanicID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookedSlot), args.Error(1)
}

func at(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, 0, 0, loc)
}

func TestAvailabilityResolver_Offerable(t *testing.T) {
	loc := mustLoc(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	mechanic := uuid.New()
	notToday := func() time.Time { return time.Date(2024, 4, 20, 12, 0, 0, 0, loc) }
	resolver := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil, domain.WithClock(notToday))

	t.Run("removes booked 10:00 and 14:00", func(t *testing.T) {
		booked := []domain.BookedSlot{
			{AppointmentID: uuid.New(), MechanicID: mechanic, At: at(loc, 10, 0)},
			{AppointmentID: uuid.New(), MechanicID: mechanic, At: at(loc, 14, 0).UTC()},
		}

		got := resolver.Offerable(day, booked, uuid.Nil)

		want := []time.Time{
			at(loc, 9, 0), at(loc, 11, 0), at(loc, 12, 0), at(loc, 13, 0),
			at(loc, 15, 0), at(loc, 16, 0), at(loc, 17, 0), at(loc, 18, 0),
		}
		assert.Equal(t, want, got)
	})

	t.Run("set difference for random subsets", func(t *testing.T) {
		grid := domain.DefaultWorkdayGrid().Slots(day, loc)
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			var booked []domain.BookedSlot
			bookedSet := map[int64]bool{}
			for _, s := range grid {
				if rng.Intn(2) == 0 {
					booked = append(booked, domain.BookedSlot{AppointmentID: uuid.New(), At: s})
					bookedSet[s.UnixNano()] = true
				}
			}
			var want []time.Time
			for _, s := range grid {
				if !bookedSet[s.UnixNano()] {
					want = append(want, s)
				}
			}

			got := resolver.Offerable(day, booked, uuid.Nil)
			assert.Equal(t, len(want), len(got))
			for j := range want {
				assert.True(t, want[j].Equal(got[j]))
			}
		}
	})

	t.Run("overlap without exact match does not remove a slot", func(t *testing.T) {
		booked := []domain.BookedSlot{{AppointmentID: uuid.New(), At: at(loc, 10, 30)}}
		assert.Len(t, resolver.Offerable(day, booked, uuid.Nil), 10)
	})

	t.Run("own booking is excluded", func(t *testing.T) {
		self := uuid.New()
		booked := []domain.BookedSlot{{AppointmentID: self, At: at(loc, 10, 0)}}
		got := resolver.Offerable(day, booked, self)
		assert.True(t, domain.ContainsInstant(got, at(loc, 10, 0)))
	})

	t.Run("today drops slots within the lead time", func(t *testing.T) {
		now := at(loc, 10, 57)
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil,
			domain.WithClock(func() time.Time { return now }))

		got := r.Offerable(day, nil, uuid.Nil)

		require.NotEmpty(t, got)
		assert.Equal(t, at(loc, 12, 0), got[0])
		for _, s := range got {
			assert.True(t, s.After(now.Add(domain.MinimumLeadTime)))
		}
	})

	t.Run("today keeps a slot just beyond the lead time", func(t *testing.T) {
		now := at(loc, 10, 54)
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil,
			domain.WithClock(func() time.Time { return now }))

		got := r.Offerable(day, nil, uuid.Nil)
		assert.Equal(t, at(loc, 11, 0), got[0])
	})

	t.Run("slot exactly at the cutoff is dropped", func(t *testing.T) {
		now := at(loc, 10, 55)
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil,
			domain.WithClock(func() time.Time { return now }))

		got := r.Offerable(day, nil, uuid.Nil)
		assert.Equal(t, at(loc, 12, 0), got[0])
	})

	t.Run("a past day offers nothing", func(t *testing.T) {
		later := func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, loc) }
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil, domain.WithClock(later))

		assert.Empty(t, r.Offerable(day, nil, uuid.Nil))
	})
}

func TestAvailabilityResolver_CheckSlot(t *testing.T) {
	loc := mustLoc(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	now := at(loc, 10, 57)
	r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, nil,
		domain.WithClock(func() time.Time { return now }))
	booked := []domain.BookedSlot{{AppointmentID: uuid.New(), At: at(loc, 14, 0)}}
	offerable := r.Offerable(day, booked, uuid.Nil)

	t.Run("offered instant passes", func(t *testing.T) {
		assert.NoError(t, r.CheckSlot(at(loc, 15, 0), offerable))
	})

	t.Run("grid instant held by another appointment is a conflict", func(t *testing.T) {
		err := r.CheckSlot(at(loc, 14, 0), offerable)

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindSlotConflict, de.Kind)
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	})

	t.Run("off grid instant is not offerable", func(t *testing.T) {
		assert.ErrorIs(t, r.CheckSlot(at(loc, 14, 30), offerable), domain.ErrSlotNotOfferable)
		assert.ErrorIs(t, r.CheckSlot(at(loc, 19, 0), offerable), domain.ErrSlotNotOfferable)
	})

	t.Run("instants inside the lead time or earlier are in the past", func(t *testing.T) {
		assert.ErrorIs(t, r.CheckSlot(at(loc, 11, 0), offerable), domain.ErrAssignedInPast)
		assert.ErrorIs(t, r.CheckSlot(at(loc, 9, 0), offerable), domain.ErrAssignedInPast)
		assert.ErrorIs(t, r.CheckInstant(now.Add(domain.MinimumLeadTime)), domain.ErrAssignedInPast)
		assert.NoError(t, r.CheckInstant(now.Add(domain.MinimumLeadTime+time.Second)))
	})
}

func TestAvailabilityResolver_Resolve(t *testing.T) {
	loc := mustLoc(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	from, to := domain.DayBounds(day, loc)
	clock := domain.WithClock(func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, loc) })
	ctx := context.Background()

	t.Run("fetches the agenda for the mechanic and day", func(t *testing.T) {
		agenda := new(mockAgendaReader)
		mechanic := uuid.New()
		agenda.On("BookedSlots", ctx, mechanic, from, to).
			Return([]domain.BookedSlot{{AppointmentID: uuid.New(), MechanicID: mechanic, At: at(loc, 9, 0)}}, nil)
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, agenda, clock)

		got, err := r.Resolve(ctx, mechanic, day, uuid.Nil)

		require.NoError(t, err)
		assert.Len(t, got, 9)
		assert.Equal(t, at(loc, 10, 0), got[0])
		agenda.AssertExpectations(t)
	})

	t.Run("each call fetches again", func(t *testing.T) {
		agenda := new(mockAgendaReader)
		m1, m2 := uuid.New(), uuid.New()
		agenda.On("BookedSlots", ctx, m1, from, to).Return([]domain.BookedSlot{}, nil).Twice()
		agenda.On("BookedSlots", ctx, m2, from, to).Return([]domain.BookedSlot{}, nil).Once()
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, agenda, clock)

		_, _ = r.Resolve(ctx, m1, day, uuid.Nil)
		_, _ = r.Resolve(ctx, m2, day, uuid.Nil)
		_, _ = r.Resolve(ctx, m1, day, uuid.Nil)

		agenda.AssertExpectations(t)
	})

	t.Run("fails closed when the fetch fails", func(t *testing.T) {
		agenda := new(mockAgendaReader)
		mechanic := uuid.New()
		cause := errors.New("connection refused")
		agenda.On("BookedSlots", ctx, mechanic, from, to).Return(nil, cause)
		r := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), loc, agenda, clock)

		got, err := r.Resolve(ctx, mechanic, day, uuid.Nil)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
		assert.ErrorIs(t, err, cause)
	})
}
