package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

// DispatchTowCommand records that a tow truck left for the vehicle.
type DispatchTowCommand struct {
	AppointmentID uuid.UUID
	OperatorID    uuid.UUID
}

// DispatchTowHandler handles the DispatchTowCommand.
type DispatchTowHandler struct {
	appointmentRepo domain.AppointmentRepository
	recorder        changeRecorder
	uow             sharedApplication.UnitOfWork
	now             func() time.Time
}

// NewDispatchTowHandler creates a new DispatchTowHandler.
func NewDispatchTowHandler(
	appointmentRepo domain.AppointmentRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *DispatchTowHandler {
	return &DispatchTowHandler{
		appointmentRepo: appointmentRepo,
		recorder:        changeRecorder{historyRepo: historyRepo, outboxRepo: outboxRepo},
		uow:             uow,
		now:             time.Now,
	}
}

// Handle executes the DispatchTowCommand. A repeated dispatch returns the
// appointment without writing anything.
func (h *DispatchTowHandler) Handle(ctx context.Context, cmd DispatchTowCommand) (*domain.Appointment, error) {
	var result *domain.Appointment

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		appointment, err := loadAppointment(txCtx, h.appointmentRepo, cmd.AppointmentID)
		if err != nil {
			return err
		}

		alreadyDispatched := appointment.TowDispatched()
		if err := appointment.MarkTowDispatched(h.now()); err != nil {
			return err
		}
		result = appointment
		if alreadyDispatched {
			return nil
		}

		if err := h.appointmentRepo.Save(txCtx, appointment); err != nil {
			return err
		}
		return h.recorder.record(txCtx, appointment, cmd.OperatorID, nil)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
