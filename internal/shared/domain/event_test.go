package domain_test

import (
	"testing"
	"time"

	"github.com/fleetworks/workshop/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CLT", -4*3600))

	event := domain.NewBaseEvent(aggregateID, "appointment", "appointments.appointment.confirmed", at)

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.Equal(t, aggregateID, event.AggregateID())
	assert.Equal(t, "appointment", event.AggregateType())
	assert.Equal(t, "appointments.appointment.confirmed", event.RoutingKey())
	assert.True(t, event.OccurredAt().Equal(at))
	assert.Equal(t, time.UTC, event.OccurredAt().Location())
}

func TestBaseEvent_SetMetadata(t *testing.T) {
	event := domain.NewBaseEvent(uuid.New(), "appointment", "appointments.appointment.cancelled", time.Now())
	md := domain.EventMetadata{
		CorrelationID: "req-42",
		CausationID:   uuid.New(),
		OperatorID:    uuid.New(),
	}

	event.SetMetadata(md)

	assert.Equal(t, md, event.Metadata())
}
