// Package subscribers reacts to events published by other workshop systems.
package subscribers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/eventbus"
)

// RoutingKeyWorkOrderOpened is published by check-in when a vehicle is
// received under a work order.
const RoutingKeyWorkOrderOpened = "workorders.order.opened"

type workOrderOpened struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	WorkOrderRef  string    `json:"work_order_ref"`
}

// Completer finalizes an appointment.
type Completer interface {
	Handle(ctx context.Context, cmd commands.CompleteAppointmentCommand) error
}

// CheckInSubscriber finalizes appointments when their work order opens.
type CheckInSubscriber struct {
	complete Completer
	logger   *slog.Logger
}

var _ eventbus.EventConsumer = (*CheckInSubscriber)(nil)

// NewCheckInSubscriber creates a new CheckInSubscriber.
func NewCheckInSubscriber(complete Completer, logger *slog.Logger) *CheckInSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckInSubscriber{complete: complete, logger: logger}
}

func (s *CheckInSubscriber) EventTypes() []string {
	return []string{RoutingKeyWorkOrderOpened}
}

// Handle completes the appointment named in the event. Redelivery of an
// event whose appointment is already terminal is acknowledged.
func (s *CheckInSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var body workOrderOpened
	if err := event.Decode(&body); err != nil {
		s.logger.ErrorContext(ctx, "malformed work order event",
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}
	if body.AppointmentID == uuid.Nil {
		s.logger.WarnContext(ctx, "work order event without appointment", "event_id", event.EventID)
		return nil
	}

	err := s.complete.Handle(ctx, commands.CompleteAppointmentCommand{
		AppointmentID: body.AppointmentID,
		WorkOrderRef:  body.WorkOrderRef,
		OperatorID:    event.Metadata.OperatorID,
	})
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "appointment checked in",
			"appointment_id", body.AppointmentID,
			"work_order_ref", body.WorkOrderRef,
		)
		return nil
	case errors.Is(err, domain.ErrTerminalStateViolation):
		s.logger.InfoContext(ctx, "appointment already closed, skipping check-in",
			"appointment_id", body.AppointmentID,
			"error", err,
		)
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidTransition):
		s.logger.WarnContext(ctx, "check-in cannot be applied",
			"appointment_id", body.AppointmentID,
			"error", err,
		)
		return nil
	default:
		return fmt.Errorf("complete appointment %s: %w", body.AppointmentID, err)
	}
}
