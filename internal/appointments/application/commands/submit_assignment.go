package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

// SubmitAssignmentCommand binds an appointment to a mechanic and slot.
type SubmitAssignmentCommand struct {
	AppointmentID uuid.UUID
	MechanicID    *uuid.UUID
	AssignedAt    *time.Time
	Reason        string
	OperatorID    uuid.UUID
}

// SubmitAssignmentResult contains the confirmed appointment.
type SubmitAssignmentResult struct {
	Appointment *domain.Appointment
}

// SubmitAssignmentHandler confirms and assigns appointments. mechanicRepo
// must read through to the database: eligibility is decided on the
// transaction's view, never on a cached copy.
type SubmitAssignmentHandler struct {
	appointmentRepo domain.AppointmentRepository
	mechanicRepo    domain.MechanicRepository
	resolver        *domain.AvailabilityResolver
	recorder        changeRecorder
	uow             sharedApplication.UnitOfWork
	now             func() time.Time
}

// NewSubmitAssignmentHandler creates a new SubmitAssignmentHandler.
func NewSubmitAssignmentHandler(
	appointmentRepo domain.AppointmentRepository,
	mechanicRepo domain.MechanicRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	resolver *domain.AvailabilityResolver,
	uow sharedApplication.UnitOfWork,
) *SubmitAssignmentHandler {
	return &SubmitAssignmentHandler{
		appointmentRepo: appointmentRepo,
		mechanicRepo:    mechanicRepo,
		resolver:        resolver,
		recorder:        changeRecorder{historyRepo: historyRepo, outboxRepo: outboxRepo},
		uow:             uow,
		now:             time.Now,
	}
}

// Handle executes the SubmitAssignmentCommand. Input checks run before any
// agenda read, and the slot is checked against a fresh agenda inside the
// same transaction that saves it. The save itself is the final guard: the
// backend rejects a second confirmed appointment on the same slot.
func (h *SubmitAssignmentHandler) Handle(ctx context.Context, cmd SubmitAssignmentCommand) (*SubmitAssignmentResult, error) {
	var result *SubmitAssignmentResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		appointment, err := loadAppointment(txCtx, h.appointmentRepo, cmd.AppointmentID)
		if err != nil {
			return err
		}
		if err := appointment.CheckAssignment(cmd.MechanicID, cmd.AssignedAt, cmd.Reason); err != nil {
			return err
		}
		if err := h.resolver.CheckInstant(*cmd.AssignedAt); err != nil {
			return err
		}

		mechanic, err := h.mechanicRepo.FindByID(txCtx, *cmd.MechanicID)
		if err != nil {
			return err
		}
		if mechanic == nil || !mechanic.Active {
			return domain.ErrMechanicNotEligible
		}

		offerable, err := h.resolver.Resolve(txCtx, mechanic.ID, *cmd.AssignedAt, appointment.ID())
		if err != nil {
			return err
		}
		if err := h.resolver.CheckSlot(*cmd.AssignedAt, offerable); err != nil {
			return err
		}

		now := h.now()
		previous := appointment.PreviousInstant()
		if err := appointment.ConfirmAndAssign(cmd.MechanicID, cmd.AssignedAt, cmd.Reason, offerable, now); err != nil {
			return err
		}
		if err := h.appointmentRepo.Save(txCtx, appointment); err != nil {
			return err
		}

		comment := "assigned"
		if domain.RequiresReason(previous, cmd.AssignedAt) {
			comment = "rescheduled: " + appointment.ReschedulingReason()
		}
		// Reassigning a confirmed appointment is logged even though the
		// status stays Confirmado.
		change := domain.NewStatusChange(appointment.ID(), appointment.Status(), cmd.OperatorID, comment, now)
		if err := h.recorder.record(txCtx, appointment, cmd.OperatorID, &change); err != nil {
			return err
		}

		result = &SubmitAssignmentResult{Appointment: appointment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
