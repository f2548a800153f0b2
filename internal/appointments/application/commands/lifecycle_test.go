package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
)

func TestSubmitCancellationHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels and records history", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		history := new(mockHistoryRepo)
		box := new(mockOutboxRepo)
		a := scheduledAppointment(nil)

		repo.On("FindByID", mock.Anything, a.ID()).Return(a, nil)
		repo.On("Save", mock.Anything, a).Return(nil)
		history.On("Append", mock.Anything, mock.MatchedBy(func(c domain.StatusChange) bool {
			return c.Status == domain.StatusCancelled && c.Comment == "driver sold the car"
		})).Return(nil)
		box.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		handler := NewSubmitCancellationHandler(repo, history, box, sharedApplication.NoopUnitOfWork{})
		result, err := handler.Handle(ctx, SubmitCancellationCommand{AppointmentID: a.ID(), Comment: "driver sold the car"})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, result.Appointment.Status())
		history.AssertExpectations(t)
	})

	t.Run("cancelling twice is a terminal violation", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		a := scheduledAppointment(nil)
		require.NoError(t, a.Cancel(testNow))
		repo.On("FindByID", mock.Anything, a.ID()).Return(a, nil)

		handler := NewSubmitCancellationHandler(repo, new(mockHistoryRepo), new(mockOutboxRepo), sharedApplication.NoopUnitOfWork{})
		_, err := handler.Handle(ctx, SubmitCancellationCommand{AppointmentID: a.ID()})

		assert.ErrorIs(t, err, domain.ErrTerminalStateViolation)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCompleteAppointmentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed appointment is finalized", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		history := new(mockHistoryRepo)
		box := new(mockOutboxRepo)
		a := confirmedAppointment(uuid.New(), at(10))

		repo.On("FindByID", mock.Anything, a.ID()).Return(a, nil)
		repo.On("Save", mock.Anything, a).Return(nil)
		history.On("Append", mock.Anything, mock.Anything).Return(nil)
		box.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		handler := NewCompleteAppointmentHandler(repo, history, box, sharedApplication.NoopUnitOfWork{})
		err := handler.Handle(ctx, CompleteAppointmentCommand{AppointmentID: a.ID(), WorkOrderRef: "OT-881"})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, a.Status())
		assert.Equal(t, "OT-881", a.WorkOrderRef())
	})

	t.Run("scheduled appointment cannot be checked in", func(t *testing.T) {
		repo := new(mockAppointmentRepo)
		a := scheduledAppointment(nil)
		repo.On("FindByID", mock.Anything, a.ID()).Return(a, nil)

		handler := NewCompleteAppointmentHandler(repo, new(mockHistoryRepo), new(mockOutboxRepo), sharedApplication.NoopUnitOfWork{})
		err := handler.Handle(ctx, CompleteAppointmentCommand{AppointmentID: a.ID(), WorkOrderRef: "OT-1"})

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestDispatchTowHandler_Handle(t *testing.T) {
	ctx := context.Background()
	repo := new(mockAppointmentRepo)
	box := new(mockOutboxRepo)
	a := scheduledAppointment(nil)

	repo.On("FindByID", mock.Anything, a.ID()).Return(a, nil)
	repo.On("Save", mock.Anything, a).Return(nil).Once()
	box.On("SaveBatch", mock.Anything, mock.Anything).Return(nil).Once()

	handler := NewDispatchTowHandler(repo, new(mockHistoryRepo), box, sharedApplication.NoopUnitOfWork{})

	got, err := handler.Handle(ctx, DispatchTowCommand{AppointmentID: a.ID()})
	require.NoError(t, err)
	assert.True(t, got.TowDispatched())

	_, err = handler.Handle(ctx, DispatchTowCommand{AppointmentID: a.ID()})
	require.NoError(t, err)

	repo.AssertNumberOfCalls(t, "Save", 1)
	box.AssertNumberOfCalls(t, "SaveBatch", 1)
}

func TestMechanicHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("register", func(t *testing.T) {
		repo := new(mockMechanicRepo)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Mechanic")).Return(nil)

		m, err := NewRegisterMechanicHandler(repo, sharedApplication.NoopUnitOfWork{}).Handle(ctx, RegisterMechanicCommand{Name: " Rosa "})

		require.NoError(t, err)
		assert.Equal(t, "Rosa", m.Name)
		assert.True(t, m.Active)
	})

	t.Run("register requires a name", func(t *testing.T) {
		_, err := NewRegisterMechanicHandler(new(mockMechanicRepo), sharedApplication.NoopUnitOfWork{}).Handle(ctx, RegisterMechanicCommand{})
		assert.ErrorIs(t, err, domain.ErrMissingMechanicName)
	})

	t.Run("deactivate", func(t *testing.T) {
		repo := new(mockMechanicRepo)
		m := &domain.Mechanic{ID: uuid.New(), Name: "Rosa", Active: true}
		repo.On("FindByID", mock.Anything, m.ID).Return(m, nil)
		repo.On("Save", mock.Anything, m).Return(nil)

		got, err := NewSetMechanicActiveHandler(repo, sharedApplication.NoopUnitOfWork{}).Handle(ctx, SetMechanicActiveCommand{MechanicID: m.ID})

		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("unknown mechanic", func(t *testing.T) {
		repo := new(mockMechanicRepo)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := NewSetMechanicActiveHandler(repo, sharedApplication.NoopUnitOfWork{}).Handle(ctx, SetMechanicActiveCommand{MechanicID: id, Active: true})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("deactivate drops cached copies after commit", func(t *testing.T) {
		uow := &recordingUnitOfWork{}
		repo := &cachingMechanicRepo{mockMechanicRepo: new(mockMechanicRepo), uow: uow}
		m := &domain.Mechanic{ID: uuid.New(), Name: "Rosa", Active: true}
		repo.On("FindByID", mock.Anything, m.ID).Return(m, nil)
		repo.On("Save", mock.Anything, m).Return(nil)

		_, err := NewSetMechanicActiveHandler(repo, uow).Handle(ctx, SetMechanicActiveCommand{MechanicID: m.ID})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{m.ID}, repo.invalidated)
		assert.Equal(t, []bool{true}, repo.committedAt)
	})

	t.Run("failed deactivation leaves the cache alone", func(t *testing.T) {
		uow := &recordingUnitOfWork{}
		repo := &cachingMechanicRepo{mockMechanicRepo: new(mockMechanicRepo), uow: uow}
		m := &domain.Mechanic{ID: uuid.New(), Name: "Rosa", Active: true}
		repo.On("FindByID", mock.Anything, m.ID).Return(m, nil)
		repo.On("Save", mock.Anything, m).Return(errors.New("disk full"))

		_, err := NewSetMechanicActiveHandler(repo, uow).Handle(ctx, SetMechanicActiveCommand{MechanicID: m.ID})

		require.Error(t, err)
		assert.Empty(t, repo.invalidated)
	})
}

// recordingUnitOfWork tracks whether Commit ran.
type recordingUnitOfWork struct {
	committed bool
}

func (u *recordingUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (u *recordingUnitOfWork) Commit(context.Context) error {
	u.committed = true
	return nil
}
func (u *recordingUnitOfWork) Rollback(context.Context) error { return nil }

// cachingMechanicRepo records invalidations and whether the unit of work had
// committed when each one happened.
type cachingMechanicRepo struct {
	*mockMechanicRepo
	uow         *recordingUnitOfWork
	invalidated []uuid.UUID
	committedAt []bool
}

func (r *cachingMechanicRepo) Invalidate(_ context.Context, id uuid.UUID) {
	r.invalidated = append(r.invalidated, id)
	r.committedAt = append(r.committedAt, r.uow.committed)
}
