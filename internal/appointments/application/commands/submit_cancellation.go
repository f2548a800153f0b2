package commands

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

// SubmitCancellationCommand cancels an appointment.
type SubmitCancellationCommand struct {
	AppointmentID uuid.UUID
	OperatorID    uuid.UUID
	Comment       string
}

// SubmitCancellationResult contains the cancelled appointment.
type SubmitCancellationResult struct {
	Appointment *domain.Appointment
}

// SubmitCancellationHandler handles the SubmitCancellationCommand.
type SubmitCancellationHandler struct {
	appointmentRepo domain.AppointmentRepository
	recorder        changeRecorder
	uow             sharedApplication.UnitOfWork
	now             func() time.Time
}

// NewSubmitCancellationHandler creates a new SubmitCancellationHandler.
func NewSubmitCancellationHandler(
	appointmentRepo domain.AppointmentRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *SubmitCancellationHandler {
	return &SubmitCancellationHandler{
		appointmentRepo: appointmentRepo,
		recorder:        changeRecorder{historyRepo: historyRepo, outboxRepo: outboxRepo},
		uow:             uow,
		now:             time.Now,
	}
}

// Handle executes the SubmitCancellationCommand.
func (h *SubmitCancellationHandler) Handle(ctx context.Context, cmd SubmitCancellationCommand) (*SubmitCancellationResult, error) {
	var result *SubmitCancellationResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		appointment, err := loadAppointment(txCtx, h.appointmentRepo, cmd.AppointmentID)
		if err != nil {
			return err
		}

		now := h.now()
		before := appointment.Status()
		if err := appointment.Cancel(now); err != nil {
			return err
		}
		if err := h.appointmentRepo.Save(txCtx, appointment); err != nil {
			return err
		}

		comment := strings.TrimSpace(cmd.Comment)
		if comment == "" {
			comment = "cancelled"
		}
		change := statusChange(appointment, before, cmd.OperatorID, comment, now)
		if err := h.recorder.record(txCtx, appointment, cmd.OperatorID, change); err != nil {
			return err
		}

		result = &SubmitCancellationResult{Appointment: appointment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
