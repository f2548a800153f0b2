package application

import (
	"testing"
	"time"

	"github.com/fleetworks/workshop/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewEventMetadata(t *testing.T) {
	operator := uuid.New()

	t.Run("keeps the request correlation id", func(t *testing.T) {
		md := NewEventMetadata(operator, "req-7")
		assert.Equal(t, "req-7", md.CorrelationID)
		assert.Equal(t, operator, md.OperatorID)
		assert.NotEqual(t, uuid.Nil, md.CausationID)
	})

	t.Run("generates a correlation id when missing", func(t *testing.T) {
		a := NewEventMetadata(operator, "")
		b := NewEventMetadata(operator, "")
		assert.NotEmpty(t, a.CorrelationID)
		assert.NotEqual(t, a.CorrelationID, b.CorrelationID)
	})
}

func TestApplyEventMetadata(t *testing.T) {
	e1 := domain.NewBaseEvent(uuid.New(), "appointment", "appointments.appointment.confirmed", time.Now())
	e2 := domain.NewBaseEvent(uuid.New(), "appointment", "appointments.appointment.rescheduled", time.Now())
	md := NewEventMetadata(uuid.New(), "req-1")

	ApplyEventMetadata([]domain.DomainEvent{&e1, &e2}, md)

	assert.Equal(t, md, e1.Metadata())
	assert.Equal(t, md, e2.Metadata())
	assert.NotPanics(t, func() { ApplyEventMetadata(nil, md) })
}
