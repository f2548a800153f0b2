// Package services exposes the appointment use cases behind one facade
// shared by the HTTP API, the CLI and the remote backend client.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// DefaultRequestTimeout bounds every scheduler call when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// Scheduler is the assignment workflow an operator drives.
type Scheduler interface {
	LoadContext(ctx context.Context, appointmentID uuid.UUID) (*queries.AppointmentContext, error)
	ListOfferableSlots(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]time.Time, error)
	SubmitAssignment(ctx context.Context, cmd commands.SubmitAssignmentCommand) (*queries.AppointmentDTO, error)
	SubmitCancellation(ctx context.Context, cmd commands.SubmitCancellationCommand) (*queries.AppointmentDTO, error)
}

// Backend is Scheduler plus intake, listings and the mechanic directory.
type Backend interface {
	Scheduler
	RequestAppointment(ctx context.Context, cmd commands.RequestAppointmentCommand) (*queries.AppointmentDTO, error)
	ListAppointments(ctx context.Context, query queries.ListAppointmentsQuery) ([]queries.AppointmentDTO, error)
	History(ctx context.Context, appointmentID uuid.UUID) ([]queries.StatusChangeDTO, error)
	DispatchTow(ctx context.Context, cmd commands.DispatchTowCommand) (*queries.AppointmentDTO, error)
	Agenda(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]queries.BookedSlotDTO, error)
	ListMechanics(ctx context.Context) ([]queries.MechanicDTO, error)
	RegisterMechanic(ctx context.Context, cmd commands.RegisterMechanicCommand) (*queries.MechanicDTO, error)
	SetMechanicActive(ctx context.Context, cmd commands.SetMechanicActiveCommand) (*queries.MechanicDTO, error)
}

// Handlers groups the command and query handlers the scheduler delegates to.
type Handlers struct {
	RequestAppointment *commands.RequestAppointmentHandler
	SubmitAssignment   *commands.SubmitAssignmentHandler
	SubmitCancellation *commands.SubmitCancellationHandler
	DispatchTow        *commands.DispatchTowHandler
	RegisterMechanic   *commands.RegisterMechanicHandler
	SetMechanicActive  *commands.SetMechanicActiveHandler

	LoadContext        *queries.LoadContextHandler
	ListOfferableSlots *queries.ListOfferableSlotsHandler
	GetAgenda          *queries.GetAgendaHandler
	GetHistory         *queries.GetHistoryHandler
	ListAppointments   *queries.ListAppointmentsHandler
	ListMechanics      *queries.ListMechanicsHandler
}

// AppointmentScheduler runs the use cases in process. Each call gets its
// own deadline so no operation blocks indefinitely.
type AppointmentScheduler struct {
	h       Handlers
	timeout time.Duration
	logger  *slog.Logger
}

var _ Backend = (*AppointmentScheduler)(nil)

// NewAppointmentScheduler creates the in-process scheduler.
func NewAppointmentScheduler(h Handlers, timeout time.Duration, logger *slog.Logger) *AppointmentScheduler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentScheduler{h: h, timeout: timeout, logger: logger}
}

func (s *AppointmentScheduler) LoadContext(ctx context.Context, appointmentID uuid.UUID) (*queries.AppointmentContext, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.h.LoadContext.Handle(ctx, queries.LoadContextQuery{AppointmentID: appointmentID})
}

func (s *AppointmentScheduler) ListOfferableSlots(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	slots, err := s.h.ListOfferableSlots.Handle(ctx, queries.ListOfferableSlotsQuery{MechanicID: mechanicID, Day: day})
	if err != nil {
		s.logger.WarnContext(ctx, "offerable slots unavailable",
			"mechanic_id", mechanicID,
			"day", day.Format(time.DateOnly),
			"error", err,
		)
		return nil, err
	}
	return slots, nil
}

func (s *AppointmentScheduler) SubmitAssignment(ctx context.Context, cmd commands.SubmitAssignmentCommand) (*queries.AppointmentDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.h.SubmitAssignment.Handle(ctx, cmd)
	if err != nil {
		s.logger.InfoContext(ctx, "assignment rejected",
			"appointment_id", cmd.AppointmentID,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	dto := queries.ToAppointmentDTO(result.Appointment)
	s.logger.InfoContext(ctx, "appointment assigned",
		"appointment_id", dto.ID,
		"mechanic_id", dto.AssignedMechanicID,
		"assigned_at", dto.AssignedAt,
	)
	return &dto, nil
}

func (s *AppointmentScheduler) SubmitCancellation(ctx context.Context, cmd commands.SubmitCancellationCommand) (*queries.AppointmentDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.h.SubmitCancellation.Handle(ctx, cmd)
	if err != nil {
		s.logger.InfoContext(ctx, "cancellation rejected",
			"appointment_id", cmd.AppointmentID,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	dto := queries.ToAppointmentDTO(result.Appointment)
	s.logger.InfoContext(ctx, "appointment cancelled", "appointment_id", dto.ID)
	return &dto, nil
}

func (s *AppointmentScheduler) RequestAppointment(ctx context.Context, cmd commands.RequestAppointmentCommand) (*queries.AppointmentDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.h.RequestAppointment.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	dto := queries.ToAppointmentDTO(result.Appointment)
	s.logger.InfoContext(ctx, "appointment requested",
		"appointment_id", dto.ID,
		"vehicle_plate", dto.VehiclePlate,
	)
	return &dto, nil
}

func (s *AppointmentScheduler) ListAppointments(ctx context.Context, query queries.ListAppointmentsQuery) ([]queries.AppointmentDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.h.ListAppointments.Handle(ctx, query)
}

func (s *AppointmentScheduler) History(ctx context.Context, appointmentID uuid.UUID) ([]queries.StatusChangeDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.h.GetHistory.Handle(ctx, queries.GetHistoryQuery{AppointmentID: appointmentID})
}

func (s *AppointmentScheduler) DispatchTow(ctx context.Context, cmd commands.DispatchTowCommand) (*queries.AppointmentDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appointment, err := s.h.DispatchTow.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	dto := queries.ToAppointmentDTO(appointment)
	return &dto, nil
}

func (s *AppointmentScheduler) Agenda(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]queries.BookedSlotDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.h.GetAgenda.Handle(ctx, queries.GetAgendaQuery{MechanicID: mechanicID, Day: day})
}

func (s *AppointmentScheduler) ListMechanics(ctx context.Context) ([]queries.MechanicDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.h.ListMechanics.Handle(ctx)
}

func (s *AppointmentScheduler) RegisterMechanic(ctx context.Context, cmd commands.RegisterMechanicCommand) (*queries.MechanicDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mechanic, err := s.h.RegisterMechanic.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "mechanic registered", "mechanic_id", mechanic.ID)
	dto := queries.ToMechanicDTO(*mechanic)
	return &dto, nil
}

func (s *AppointmentScheduler) SetMechanicActive(ctx context.Context, cmd commands.SetMechanicActiveCommand) (*queries.MechanicDTO, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mechanic, err := s.h.SetMechanicActive.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	dto := queries.ToMechanicDTO(*mechanic)
	return &dto, nil
}
