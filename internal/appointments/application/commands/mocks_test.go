package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/shared/infrastructure/outbox"
)

type mockAppointmentRepo struct {
	mock.Mock
}

func (m *mockAppointmentRepo) Create(ctx context.Context, appointment *domain.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *mockAppointmentRepo) Save(ctx context.Context, appointment *domain.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) HasActiveForVehicle(ctx context.Context, plate string) (bool, error) {
	args := m.Called(ctx, plate)
	return args.Bool(0), args.Error(1)
}

func (m *mockAppointmentRepo) List(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Appointment), args.Error(1)
}

type mockMechanicRepo struct {
	mock.Mock
}

func (m *mockMechanicRepo) Save(ctx context.Context, mechanic *domain.Mechanic) error {
	args := m.Called(ctx, mechanic)
	return args.Error(0)
}

func (m *mockMechanicRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Mechanic, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mechanic), args.Error(1)
}

func (m *mockMechanicRepo) ListEligible(ctx context.Context) ([]domain.Mechanic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mechanic), args.Error(1)
}

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) Append(ctx context.Context, change domain.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *mockHistoryRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusChange), args.Error(1)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return m.Called(ctx, id, errMsg, nextRetryAt).Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockAgendaReader struct {
	mock.Mock
}

func (m *mockAgendaReader) BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	args := m.Called(ctx, mechanicID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookedSlot), args.Error(1)
}

// Fixed instants used across the command tests. The workshop runs in UTC
// here so slot arithmetic is easy to read.
var (
	testDay = time.Date(2030, 3, 11, 0, 0, 0, 0, time.UTC)
	testNow = time.Date(2030, 3, 10, 12, 0, 0, 0, time.UTC)
)

func at(hour int) *time.Time {
	t := testDay.Add(time.Duration(hour) * time.Hour)
	return &t
}

func fixedClock() time.Time { return testNow }

func scheduledAppointment(requestedAt *time.Time) *domain.Appointment {
	return domain.RehydrateAppointment(domain.AppointmentSnapshot{
		ID:              uuid.New(),
		VehiclePlate:    "KTRZ21",
		ReasonForVisit:  "brake noise",
		TowRequested:    true,
		TowAddress:      "Av. Matta 100",
		RequestedAt:     requestedAt,
		Status:          domain.StatusScheduled,
		DurationMinutes: 60,
		Version:         1,
		CreatedAt:       testNow.Add(-time.Hour),
		UpdatedAt:       testNow.Add(-time.Hour),
	})
}

func confirmedAppointment(mechanicID uuid.UUID, assignedAt *time.Time) *domain.Appointment {
	return domain.RehydrateAppointment(domain.AppointmentSnapshot{
		ID:                 uuid.New(),
		VehiclePlate:       "KTRZ21",
		ReasonForVisit:     "brake noise",
		AssignedAt:         assignedAt,
		AssignedMechanicID: &mechanicID,
		Status:             domain.StatusConfirmed,
		DurationMinutes:    60,
		Version:            2,
		CreatedAt:          testNow.Add(-time.Hour),
		UpdatedAt:          testNow.Add(-time.Hour),
	})
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
