package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

type assignmentFixture struct {
	appointments *mockAppointmentRepo
	mechanics    *mockMechanicRepo
	history      *mockHistoryRepo
	outbox       *mockOutboxRepo
	agenda       *mockAgendaReader
	handler      *SubmitAssignmentHandler
	mechanic     *domain.Mechanic
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		appointments: new(mockAppointmentRepo),
		mechanics:    new(mockMechanicRepo),
		history:      new(mockHistoryRepo),
		outbox:       new(mockOutboxRepo),
		agenda:       new(mockAgendaReader),
		mechanic:     &domain.Mechanic{ID: uuid.New(), Name: "Rosa", Active: true},
	}
	resolver := domain.NewAvailabilityResolver(domain.DefaultWorkdayGrid(), time.UTC, f.agenda, domain.WithClock(fixedClock))
	f.handler = NewSubmitAssignmentHandler(f.appointments, f.mechanics, f.history, f.outbox, resolver, sharedApplication.NoopUnitOfWork{})
	f.handler.now = fixedClock
	return f
}

func (f *assignmentFixture) load(a *domain.Appointment) {
	f.appointments.On("FindByID", mock.Anything, a.ID()).Return(a, nil)
}

func (f *assignmentFixture) booked(slots ...domain.BookedSlot) {
	f.mechanics.On("FindByID", mock.Anything, f.mechanic.ID).Return(f.mechanic, nil)
	f.agenda.On("BookedSlots", mock.Anything, f.mechanic.ID, mock.Anything, mock.Anything).Return(slots, nil)
}

func (f *assignmentFixture) expectWrites() {
	f.appointments.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.outbox.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
}

func TestSubmitAssignmentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("first assignment without a requested time needs no reason", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.booked(
			domain.BookedSlot{AppointmentID: uuid.New(), MechanicID: f.mechanic.ID, At: *at(10)},
			domain.BookedSlot{AppointmentID: uuid.New(), MechanicID: f.mechanic.ID, At: *at(14)},
		)
		f.expectWrites()

		result, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, result.Appointment.Status())
		assert.True(t, at(11).Equal(*result.Appointment.AssignedAt()))
		assert.Empty(t, result.Appointment.ReschedulingReason())
		f.outbox.AssertCalled(t, "SaveBatch", mock.Anything, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return len(msgs) == 1 && msgs[0].RoutingKey == domain.RoutingKeyAppointmentConfirmed
		}))
	})

	t.Run("slot booked by another appointment is a conflict and nothing is written", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.booked(domain.BookedSlot{AppointmentID: uuid.New(), MechanicID: f.mechanic.ID, At: *at(10)})

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(10),
		})

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindSlotConflict, de.Kind)
		assert.Equal(t, "slot_taken", de.Code)
		assert.Equal(t, domain.StatusScheduled, a.Status())
		f.appointments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("instant off the grid is not offerable", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.booked()
		offGrid := at(10).Add(30 * time.Minute)

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    &offGrid,
		})

		assert.ErrorIs(t, err, domain.ErrSlotNotOfferable)
		f.appointments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("instant in the past is rejected before any read of mechanics or agenda", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		yesterday := testNow.Add(-24 * time.Hour).Truncate(time.Hour)

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    &yesterday,
		})

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "assigned_in_past", de.Code)
		assert.Equal(t, "assigned_at", de.Field)
		assert.Equal(t, domain.StatusScheduled, a.Status())
		f.mechanics.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.agenda.AssertNotCalled(t, "BookedSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.appointments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("requested time kept needs no reason", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(at(10))
		f.load(a)
		f.booked()
		f.expectWrites()

		result, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(10),
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, result.Appointment.Status())
	})

	t.Run("moving a confirmed appointment without a reason fails before any agenda read", func(t *testing.T) {
		f := newAssignmentFixture()
		a := confirmedAppointment(f.mechanic.ID, at(10))
		f.load(a)

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
			Reason:        "   ",
		})

		assert.ErrorIs(t, err, domain.ErrMissingReason)
		assert.True(t, at(10).Equal(*a.AssignedAt()))
		f.agenda.AssertNotCalled(t, "BookedSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.mechanics.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("reschedule with a reason ignores the appointment's own booking", func(t *testing.T) {
		f := newAssignmentFixture()
		a := confirmedAppointment(f.mechanic.ID, at(10))
		f.load(a)
		f.booked(domain.BookedSlot{AppointmentID: a.ID(), MechanicID: f.mechanic.ID, At: *at(10)})
		f.expectWrites()

		result, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
			Reason:        "driver delayed",
		})

		require.NoError(t, err)
		assert.Equal(t, "driver delayed", result.Appointment.ReschedulingReason())
		f.history.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
			return c.Comment == "rescheduled: driver delayed"
		}))
		f.outbox.AssertCalled(t, "SaveBatch", mock.Anything, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return len(msgs) == 2 && msgs[1].RoutingKey == domain.RoutingKeyAppointmentRescheduled
		}))
	})

	t.Run("inactive mechanic is not eligible", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.mechanic.Active = false
		f.mechanics.On("FindByID", mock.Anything, f.mechanic.ID).Return(f.mechanic, nil)

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
		})

		assert.ErrorIs(t, err, domain.ErrMechanicNotEligible)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newAssignmentFixture()
		id := uuid.New()
		f.appointments.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{AppointmentID: id})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("agenda failure fails closed", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.mechanics.On("FindByID", mock.Anything, f.mechanic.ID).Return(f.mechanic, nil)
		f.agenda.On("BookedSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
		})

		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
		f.appointments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("slot conflict from the backend is surfaced", func(t *testing.T) {
		f := newAssignmentFixture()
		a := scheduledAppointment(nil)
		f.load(a)
		f.booked()
		f.appointments.On("Save", mock.Anything, mock.Anything).Return(domain.NewSlotConflictError(nil))

		_, err := f.handler.Handle(ctx, SubmitAssignmentCommand{
			AppointmentID: a.ID(),
			MechanicID:    uuidPtr(f.mechanic.ID),
			AssignedAt:    at(11),
		})

		assert.ErrorIs(t, err, domain.ErrSlotConflict)
		f.history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}
