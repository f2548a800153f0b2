package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

// CompleteAppointmentCommand finalizes a confirmed appointment after the
// vehicle was checked in under a work order.
type CompleteAppointmentCommand struct {
	AppointmentID uuid.UUID
	WorkOrderRef  string
	OperatorID    uuid.UUID
}

// CompleteAppointmentHandler handles the CompleteAppointmentCommand.
type CompleteAppointmentHandler struct {
	appointmentRepo domain.AppointmentRepository
	recorder        changeRecorder
	uow             sharedApplication.UnitOfWork
	now             func() time.Time
}

// NewCompleteAppointmentHandler creates a new CompleteAppointmentHandler.
func NewCompleteAppointmentHandler(
	appointmentRepo domain.AppointmentRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CompleteAppointmentHandler {
	return &CompleteAppointmentHandler{
		appointmentRepo: appointmentRepo,
		recorder:        changeRecorder{historyRepo: historyRepo, outboxRepo: outboxRepo},
		uow:             uow,
		now:             time.Now,
	}
}

// Handle executes the CompleteAppointmentCommand.
func (h *CompleteAppointmentHandler) Handle(ctx context.Context, cmd CompleteAppointmentCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		appointment, err := loadAppointment(txCtx, h.appointmentRepo, cmd.AppointmentID)
		if err != nil {
			return err
		}

		now := h.now()
		before := appointment.Status()
		if err := appointment.Complete(cmd.WorkOrderRef, now); err != nil {
			return err
		}
		if err := h.appointmentRepo.Save(txCtx, appointment); err != nil {
			return err
		}

		change := statusChange(appointment, before, cmd.OperatorID, "checked in as work order "+appointment.WorkOrderRef(), now)
		return h.recorder.record(txCtx, appointment, cmd.OperatorID, change)
	})
}
