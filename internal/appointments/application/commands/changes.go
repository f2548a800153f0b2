package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
	"github.com/fleetworks/workshop/pkg/observability"
)

// changeRecorder writes the side records of an appointment change: the
// history entry and the outbox messages. It must run on the transaction
// context of the change itself.
type changeRecorder struct {
	historyRepo domain.HistoryRepository
	outboxRepo  outbox.Repository
}

func (r changeRecorder) record(ctx context.Context, appointment *domain.Appointment, operatorID uuid.UUID, change *domain.StatusChange) error {
	if change != nil {
		if err := r.historyRepo.Append(ctx, *change); err != nil {
			return err
		}
	}

	events := appointment.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	metadata := sharedApplication.NewEventMetadata(operatorID, observability.CorrelationIDFromContext(ctx))
	sharedApplication.ApplyEventMetadata(events, metadata)

	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := r.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	appointment.ClearDomainEvents()
	return nil
}

// statusChange returns a history entry when the status moved from before.
func statusChange(appointment *domain.Appointment, before domain.Status, operatorID uuid.UUID, comment string, now time.Time) *domain.StatusChange {
	if appointment.Status() == before {
		return nil
	}
	change := domain.NewStatusChange(appointment.ID(), appointment.Status(), operatorID, comment, now)
	return &change
}

func loadAppointment(ctx context.Context, repo domain.AppointmentRepository, id uuid.UUID) (*domain.Appointment, error) {
	appointment, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError("appointment", id.String())
	}
	return appointment, nil
}
