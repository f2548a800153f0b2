package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/fleetworks/workshop/internal/shared/domain"
	"github.com/google/uuid"
)

// Intake is what a driver submits to request a workshop visit.
type Intake struct {
	VehiclePlate    string
	DriverID        uuid.UUID
	CreatedBy       uuid.UUID
	ReasonForVisit  string
	TowRequested    bool
	TowAddress      string
	Maintenance     bool
	DamageImageRef  string
	RequestedAt     *time.Time
	DurationMinutes int
}

// Appointment is a request to bring a vehicle into the workshop, optionally
// bound to a mechanic and slot. All status changes go through its methods.
type Appointment struct {
	sharedDomain.BaseAggregateRoot
	vehiclePlate       string
	driverID           uuid.UUID
	createdBy          uuid.UUID
	reasonForVisit     string
	towRequested       bool
	towAddress         string
	towDispatched      bool
	maintenance        bool
	damageImageRef     string
	requestedAt        *time.Time
	assignedAt         *time.Time
	assignedMechanicID *uuid.UUID
	status             Status
	reschedulingReason string
	durationMinutes    int
	workOrderRef       string
}

// NormalizePlate canonicalises a licence plate for storage and lookup.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// NewAppointment validates an intake and creates a Programado appointment.
func NewAppointment(in Intake, now time.Time) (*Appointment, error) {
	plate := NormalizePlate(in.VehiclePlate)
	if plate == "" {
		return nil, ErrMissingVehicle
	}
	reason := strings.TrimSpace(in.ReasonForVisit)
	if reason == "" {
		return nil, ErrMissingVisitReason
	}
	towAddress := strings.TrimSpace(in.TowAddress)
	if in.TowRequested && towAddress == "" {
		return nil, ErrMissingTowAddress
	}
	if in.RequestedAt != nil && in.RequestedAt.Before(now) {
		return nil, ErrRequestedInPast
	}
	duration := in.DurationMinutes
	if duration <= 0 {
		duration = DefaultWorkdayGrid().SlotMinutes()
	}

	a := &Appointment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		vehiclePlate:      plate,
		driverID:          in.DriverID,
		createdBy:         in.CreatedBy,
		reasonForVisit:    reason,
		towRequested:      in.TowRequested,
		towAddress:        towAddress,
		maintenance:       in.Maintenance,
		damageImageRef:    strings.TrimSpace(in.DamageImageRef),
		requestedAt:       utcPtr(in.RequestedAt),
		status:            StatusScheduled,
		durationMinutes:   duration,
	}

	a.AddDomainEvent(&AppointmentRequested{
		BaseEvent:     newEvent(a.ID(), RoutingKeyAppointmentRequested, now),
		VehiclePlate:  a.vehiclePlate,
		DriverID:      a.driverID,
		RequestedAt:   utcPtr(a.requestedAt),
		TowRequested:  a.towRequested,
		Maintenance:   a.maintenance,
		ReasonOfVisit: a.reasonForVisit,
	})
	return a, nil
}

func (a *Appointment) VehiclePlate() string         { return a.vehiclePlate }
func (a *Appointment) DriverID() uuid.UUID          { return a.driverID }
func (a *Appointment) CreatedBy() uuid.UUID         { return a.createdBy }
func (a *Appointment) ReasonForVisit() string       { return a.reasonForVisit }
func (a *Appointment) TowRequested() bool           { return a.towRequested }
func (a *Appointment) TowAddress() string           { return a.towAddress }
func (a *Appointment) TowDispatched() bool          { return a.towDispatched }
func (a *Appointment) Maintenance() bool            { return a.maintenance }
func (a *Appointment) DamageImageRef() string       { return a.damageImageRef }
func (a *Appointment) RequestedAt() *time.Time      { return utcPtr(a.requestedAt) }
func (a *Appointment) AssignedAt() *time.Time       { return utcPtr(a.assignedAt) }
func (a *Appointment) Status() Status               { return a.status }
func (a *Appointment) ReschedulingReason() string   { return a.reschedulingReason }
func (a *Appointment) DurationMinutes() int         { return a.durationMinutes }
func (a *Appointment) WorkOrderRef() string         { return a.workOrderRef }
func (a *Appointment) IsAssigned() bool             { return a.assignedAt != nil }
func (a *Appointment) AssignedMechanicID() *uuid.UUID {
	if a.assignedMechanicID == nil {
		return nil
	}
	id := *a.assignedMechanicID
	return &id
}

// EndsAt is the end of the assigned slot, or nil before assignment.
func (a *Appointment) EndsAt() *time.Time {
	if a.assignedAt == nil {
		return nil
	}
	end := a.assignedAt.Add(time.Duration(a.durationMinutes) * time.Minute)
	return &end
}

// PreviousInstant is the last instant agreed for this appointment: the
// assigned one, or the driver's requested one before any assignment.
func (a *Appointment) PreviousInstant() *time.Time {
	if a.assignedAt != nil {
		return utcPtr(a.assignedAt)
	}
	return utcPtr(a.requestedAt)
}

// CheckAssignment runs every input check ConfirmAndAssign performs except
// slot availability. It never mutates the appointment.
func (a *Appointment) CheckAssignment(mechanicID *uuid.UUID, at *time.Time, reason string) error {
	if a.status.IsTerminal() {
		return NewTerminalStateError(a.status, "assign")
	}
	if mechanicID == nil || *mechanicID == uuid.Nil {
		return ErrMissingMechanic
	}
	if at == nil || at.IsZero() {
		return ErrMissingSlot
	}
	return ValidateReason(reason, RequiresReason(a.PreviousInstant(), at))
}

// ConfirmAndAssign binds the appointment to a mechanic and slot and confirms
// it. offerable is the mechanic's freshly resolved availability for that day.
// A changed instant stores reason as the rescheduling reason; any other
// assignment clears it.
func (a *Appointment) ConfirmAndAssign(mechanicID *uuid.UUID, at *time.Time, reason string, offerable []time.Time, now time.Time) error {
	if err := a.CheckAssignment(mechanicID, at, reason); err != nil {
		return err
	}
	if !at.After(now) {
		return ErrAssignedInPast
	}
	if !ContainsInstant(offerable, *at) {
		return ErrSlotNotOfferable
	}

	previous := a.PreviousInstant()
	moved := RequiresReason(previous, at)

	mid := *mechanicID
	assigned := at.UTC()
	a.assignedMechanicID = &mid
	a.assignedAt = &assigned
	a.status = StatusConfirmed
	a.reschedulingReason = ""
	if moved {
		a.reschedulingReason = strings.TrimSpace(reason)
	}
	a.Touch(now)

	a.AddDomainEvent(&AppointmentConfirmed{
		BaseEvent:    newEvent(a.ID(), RoutingKeyAppointmentConfirmed, now),
		MechanicID:   mid,
		AssignedAt:   assigned,
		VehiclePlate: a.vehiclePlate,
	})
	if moved {
		a.AddDomainEvent(&AppointmentRescheduled{
			BaseEvent:    newEvent(a.ID(), RoutingKeyAppointmentRescheduled, now),
			MechanicID:   mid,
			PreviousAt:   *previous,
			AssignedAt:   assigned,
			Reason:       a.reschedulingReason,
			VehiclePlate: a.vehiclePlate,
		})
	}
	return nil
}

// Cancel terminates the appointment. It cannot be undone.
func (a *Appointment) Cancel(now time.Time) error {
	if a.status.IsTerminal() {
		return NewTerminalStateError(a.status, "cancel")
	}
	previous := a.status
	a.status = StatusCancelled
	a.Touch(now)

	a.AddDomainEvent(&AppointmentCancelled{
		BaseEvent:      newEvent(a.ID(), RoutingKeyAppointmentCancelled, now),
		PreviousStatus: previous,
		VehiclePlate:   a.vehiclePlate,
	})
	return nil
}

// Complete marks a confirmed appointment as finished once check-in has
// opened a work order for it.
func (a *Appointment) Complete(workOrderRef string, now time.Time) error {
	if a.status.IsTerminal() {
		return NewTerminalStateError(a.status, "complete")
	}
	if a.status != StatusConfirmed {
		return &Error{
			Kind:    KindInvalidTransition,
			Code:    "not_confirmed",
			Field:   "status",
			Message: "only confirmed appointments can be checked in",
		}
	}
	a.status = StatusCompleted
	a.workOrderRef = strings.TrimSpace(workOrderRef)
	a.Touch(now)

	a.AddDomainEvent(&AppointmentCompleted{
		BaseEvent:    newEvent(a.ID(), RoutingKeyAppointmentCompleted, now),
		WorkOrderRef: a.workOrderRef,
		VehiclePlate: a.vehiclePlate,
	})
	return nil
}

// MarkTowDispatched records that a tow truck was sent. Repeating it is a no-op.
func (a *Appointment) MarkTowDispatched(now time.Time) error {
	if a.status.IsTerminal() {
		return NewTerminalStateError(a.status, "dispatch a tow for")
	}
	if !a.towRequested {
		return ErrTowNotRequested
	}
	if a.towDispatched {
		return nil
	}
	a.towDispatched = true
	a.Touch(now)

	a.AddDomainEvent(&TowDispatched{
		BaseEvent:    newEvent(a.ID(), RoutingKeyTowDispatched, now),
		TowAddress:   a.towAddress,
		VehiclePlate: a.vehiclePlate,
	})
	return nil
}

// AppointmentSnapshot is the persisted form of an appointment.
type AppointmentSnapshot struct {
	ID                 uuid.UUID
	VehiclePlate       string
	DriverID           uuid.UUID
	CreatedBy          uuid.UUID
	ReasonForVisit     string
	TowRequested       bool
	TowAddress         string
	TowDispatched      bool
	Maintenance        bool
	DamageImageRef     string
	RequestedAt        *time.Time
	AssignedAt         *time.Time
	AssignedMechanicID *uuid.UUID
	Status             Status
	ReschedulingReason string
	DurationMinutes    int
	WorkOrderRef       string
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Snapshot copies the appointment's state for storage.
func (a *Appointment) Snapshot() AppointmentSnapshot {
	return AppointmentSnapshot{
		ID:                 a.ID(),
		VehiclePlate:       a.vehiclePlate,
		DriverID:           a.driverID,
		CreatedBy:          a.createdBy,
		ReasonForVisit:     a.reasonForVisit,
		TowRequested:       a.towRequested,
		TowAddress:         a.towAddress,
		TowDispatched:      a.towDispatched,
		Maintenance:        a.maintenance,
		DamageImageRef:     a.damageImageRef,
		RequestedAt:        a.RequestedAt(),
		AssignedAt:         a.AssignedAt(),
		AssignedMechanicID: a.AssignedMechanicID(),
		Status:             a.status,
		ReschedulingReason: a.reschedulingReason,
		DurationMinutes:    a.durationMinutes,
		WorkOrderRef:       a.workOrderRef,
		Version:            a.Version(),
		CreatedAt:          a.CreatedAt(),
		UpdatedAt:          a.UpdatedAt(),
	}
}

// RehydrateAppointment rebuilds an appointment from storage without raising events.
// A half-set assignment is normalised to unassigned.
func RehydrateAppointment(s AppointmentSnapshot) *Appointment {
	entity := sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt)
	a := &Appointment{
		BaseAggregateRoot:  sharedDomain.RehydrateBaseAggregateRoot(entity, s.Version),
		vehiclePlate:       s.VehiclePlate,
		driverID:           s.DriverID,
		createdBy:          s.CreatedBy,
		reasonForVisit:     s.ReasonForVisit,
		towRequested:       s.TowRequested,
		towAddress:         s.TowAddress,
		towDispatched:      s.TowDispatched,
		maintenance:        s.Maintenance,
		damageImageRef:     s.DamageImageRef,
		requestedAt:        utcPtr(s.RequestedAt),
		status:             s.Status,
		reschedulingReason: s.ReschedulingReason,
		durationMinutes:    s.DurationMinutes,
		workOrderRef:       s.WorkOrderRef,
	}
	if s.AssignedAt != nil && s.AssignedMechanicID != nil && *s.AssignedMechanicID != uuid.Nil {
		mid := *s.AssignedMechanicID
		a.assignedMechanicID = &mid
		a.assignedAt = utcPtr(s.AssignedAt)
	}
	return a
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
