package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

// RequestAppointmentCommand is a driver's request for a workshop visit.
type RequestAppointmentCommand struct {
	OperatorID     uuid.UUID
	VehiclePlate   string
	DriverID       uuid.UUID
	ReasonForVisit string
	TowRequested   bool
	TowAddress     string
	Maintenance    bool
	DamageImageRef string
	RequestedAt    *time.Time
}

// RequestAppointmentResult contains the new appointment.
type RequestAppointmentResult struct {
	Appointment *domain.Appointment
}

// RequestAppointmentHandler creates Programado appointments.
type RequestAppointmentHandler struct {
	appointmentRepo domain.AppointmentRepository
	recorder        changeRecorder
	uow             sharedApplication.UnitOfWork
	slotMinutes     int
	now             func() time.Time
}

// NewRequestAppointmentHandler creates a new RequestAppointmentHandler.
// slotMinutes is the deployment's slot duration, stored on each appointment.
func NewRequestAppointmentHandler(
	appointmentRepo domain.AppointmentRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	slotMinutes int,
) *RequestAppointmentHandler {
	return &RequestAppointmentHandler{
		appointmentRepo: appointmentRepo,
		recorder:        changeRecorder{historyRepo: historyRepo, outboxRepo: outboxRepo},
		uow:             uow,
		slotMinutes:     slotMinutes,
		now:             time.Now,
	}
}

// Handle executes the RequestAppointmentCommand.
func (h *RequestAppointmentHandler) Handle(ctx context.Context, cmd RequestAppointmentCommand) (*RequestAppointmentResult, error) {
	now := h.now()
	appointment, err := domain.NewAppointment(domain.Intake{
		VehiclePlate:    cmd.VehiclePlate,
		DriverID:        cmd.DriverID,
		CreatedBy:       cmd.OperatorID,
		ReasonForVisit:  cmd.ReasonForVisit,
		TowRequested:    cmd.TowRequested,
		TowAddress:      cmd.TowAddress,
		Maintenance:     cmd.Maintenance,
		DamageImageRef:  cmd.DamageImageRef,
		RequestedAt:     cmd.RequestedAt,
		DurationMinutes: h.slotMinutes,
	}, now)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		active, err := h.appointmentRepo.HasActiveForVehicle(txCtx, appointment.VehiclePlate())
		if err != nil {
			return err
		}
		if active {
			return domain.ErrActiveAppointmentExists
		}

		if err := h.appointmentRepo.Create(txCtx, appointment); err != nil {
			return err
		}

		change := domain.NewStatusChange(appointment.ID(), appointment.Status(), cmd.OperatorID, "appointment requested", now)
		return h.recorder.record(txCtx, appointment, cmd.OperatorID, &change)
	})
	if err != nil {
		return nil, err
	}

	return &RequestAppointmentResult{Appointment: appointment}, nil
}
