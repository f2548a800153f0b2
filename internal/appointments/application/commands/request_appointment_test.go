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

func newRequestHandler(repo *mockAppointmentRepo, history *mockHistoryRepo, box *mockOutboxRepo) *RequestAppointmentHandler {
	h := NewRequestAppointmentHandler(repo, history, box, sharedApplication.NoopUnitOfWork{}, 30)
	h.now = fixedClock
	return h
}

func TestRequestAppointmentHandler_Handle(t *testing.T) {
	ctx := context.Background()
	operator := uuid.New()

	t.Run("creates a Programado appointment with history and event", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		history := new(mockHistoryRepo)
		box := new(mockOutboxRepo)

		repo.On("HasActiveForVehicle", mock.Anything, "KTRZ21").Return(false, nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Appointment")).Return(nil)
		history.On("Append", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
			return c.Status == domain.StatusScheduled && c.OperatorID == operator
		})).Return(nil)
		box.On("SaveBatch", mock.Anything, mock.MatchedBy(func(msgs []*outbox.Message) bool {
			return len(msgs) == 1 && msgs[0].RoutingKey == domain.RoutingKeyAppointmentRequested
		})).Return(nil)

		result, err := newRequestHandler(repo, history, box).Handle(ctx, RequestAppointmentCommand{
			OperatorID:     operator,
			VehiclePlate:   " ktrz21 ",
			ReasonForVisit: "engine light",
			RequestedAt:    at(10),
		})

		require.NoError(t, err)
		a := result.Appointment
		assert.Equal(t, "KTRZ21", a.VehiclePlate())
		assert.Equal(t, domain.StatusScheduled, a.Status())
		assert.Equal(t, 30, a.DurationMinutes())
		assert.Equal(t, operator, a.CreatedBy())
		assert.Empty(t, a.DomainEvents())
		repo.AssertExpectations(t)
		history.AssertExpectations(t)
		box.AssertExpectations(t)
	})

	t.Run("rejects a second active appointment for the vehicle", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		repo.On("HasActiveForVehicle", mock.Anything, "KTRZ21").Return(true, nil)

		_, err := newRequestHandler(repo, new(mockHistoryRepo), new(mockOutboxRepo)).Handle(ctx, RequestAppointmentCommand{
			VehiclePlate:   "KTRZ21",
			ReasonForVisit: "engine light",
		})

		assert.ErrorIs(t, err, domain.ErrActiveAppointmentExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("validation fails before touching storage", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		handler := newRequestHandler(repo, new(mockHistoryRepo), new(mockOutboxRepo))

		_, err := handler.Handle(ctx, RequestAppointmentCommand{VehiclePlate: "KTRZ21", ReasonForVisit: "tow", TowRequested: true})
		assert.ErrorIs(t, err, domain.ErrMissingTowAddress)

		past := testNow.Add(-time.Hour)
		_, err = handler.Handle(ctx, RequestAppointmentCommand{VehiclePlate: "KTRZ21", ReasonForVisit: "x", RequestedAt: &past})
		assert.ErrorIs(t, err, domain.ErrRequestedInPast)

		repo.AssertNotCalled(t, "HasActiveForVehicle", mock.Anything, mock.Anything)
	})

	t.Run("outbox failure fails the command", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		history := new(mockHistoryRepo)
		box := new(mockOutboxRepo)
		boom := errors.New("disk full")

		repo.On("HasActiveForVehicle", mock.Anything, mock.Anything).Return(false, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		history.On("Append", mock.Anything, mock.Anything).Return(nil)
		box.On("SaveBatch", mock.Anything, mock.Anything).Return(boom)

		_, err := newRequestHandler(repo, history, box).Handle(ctx, RequestAppointmentCommand{
			VehiclePlate:   "KTRZ21",
			ReasonForVisit: "engine light",
		})
		assert.ErrorIs(t, err, boom)
	})
}
