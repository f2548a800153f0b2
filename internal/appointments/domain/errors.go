package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures so callers can decide how to react.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindSlotConflict           ErrorKind = "slot_conflict"
	KindStaleState             ErrorKind = "stale_state"
	KindTerminalStateViolation ErrorKind = "terminal_state_violation"
	KindInvalidTransition      ErrorKind = "invalid_transition"
	KindNotFound               ErrorKind = "not_found"
	KindBackendUnavailable     ErrorKind = "backend_unavailable"
)

// Error is the structured error returned by every scheduling operation.
// Code narrows the kind and Field names the offending input, when there is one.
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		b.WriteString("/")
		b.WriteString(e.Code)
	}
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and code, so a detailed error still satisfies
// errors.Is against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is. Kind-only sentinels match any code of that kind.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrSlotConflict           = &Error{Kind: KindSlotConflict, Code: "slot_taken"}
	ErrStaleState             = &Error{Kind: KindStaleState, Code: "version_mismatch"}
	ErrTerminalStateViolation = &Error{Kind: KindTerminalStateViolation, Code: "terminal"}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrBackendUnavailable     = &Error{Kind: KindBackendUnavailable}

	ErrMissingMechanic         = &Error{Kind: KindValidation, Code: "missing_mechanic", Field: "mechanic_id", Message: "a mechanic must be selected"}
	ErrMissingSlot             = &Error{Kind: KindValidation, Code: "missing_slot", Field: "assigned_at", Message: "a time slot must be selected"}
	ErrMissingReason           = &Error{Kind: KindValidation, Code: "missing_reason", Field: "reason", Message: "a reason is required when the appointment time changes"}
	ErrSlotNotOfferable        = &Error{Kind: KindValidation, Code: "slot_not_offerable", Field: "assigned_at", Message: "the slot is not available for this mechanic"}
	ErrMechanicNotEligible     = &Error{Kind: KindValidation, Code: "mechanic_not_eligible", Field: "mechanic_id", Message: "the mechanic cannot take appointments"}
	ErrMissingVehicle          = &Error{Kind: KindValidation, Code: "missing_vehicle", Field: "vehicle_plate", Message: "a vehicle plate is required"}
	ErrMissingVisitReason      = &Error{Kind: KindValidation, Code: "missing_visit_reason", Field: "reason_for_visit", Message: "a reason for the visit is required"}
	ErrMissingTowAddress       = &Error{Kind: KindValidation, Code: "missing_tow_address", Field: "tow_address", Message: "a pickup address is required when a tow is requested"}
	ErrRequestedInPast         = &Error{Kind: KindValidation, Code: "requested_in_past", Field: "requested_at", Message: "the requested time is in the past"}
	ErrAssignedInPast          = &Error{Kind: KindValidation, Code: "assigned_in_past", Field: "assigned_at", Message: "the slot has already started or starts too soon"}
	ErrActiveAppointmentExists = &Error{Kind: KindValidation, Code: "active_appointment_exists", Field: "vehicle_plate", Message: "the vehicle already has an active appointment"}
	ErrTowNotRequested         = &Error{Kind: KindValidation, Code: "tow_not_requested", Field: "tow_requested", Message: "no tow was requested for this appointment"}
	ErrMissingMechanicName     = &Error{Kind: KindValidation, Code: "missing_name", Field: "name", Message: "a mechanic name is required"}
	ErrInvalidGrid             = &Error{Kind: KindValidation, Code: "invalid_grid", Field: "workday", Message: "the workday must start before it ends and slots must have a positive duration"}
)

// NewSlotConflictError reports that another confirmed appointment already holds the slot.
func NewSlotConflictError(cause error) *Error {
	return &Error{
		Kind:    KindSlotConflict,
		Code:    "slot_taken",
		Field:   "assigned_at",
		Message: "the slot was booked by another appointment",
		Err:     cause,
	}
}

// NewStaleStateError reports that the appointment changed since it was loaded.
func NewStaleStateError(expectedVersion int) *Error {
	return &Error{
		Kind:    KindStaleState,
		Code:    "version_mismatch",
		Message: fmt.Sprintf("appointment was modified concurrently (expected version %d)", expectedVersion),
	}
}

// NewTerminalStateError reports an attempt to act on a finished record.
func NewTerminalStateError(status Status, action string) *Error {
	return &Error{
		Kind:    KindTerminalStateViolation,
		Code:    "terminal",
		Field:   "status",
		Message: fmt.Sprintf("cannot %s an appointment in status %s", action, status),
	}
}

// NewNotFoundError reports a missing record of the given kind.
func NewNotFoundError(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    entity + "_not_found",
		Field:   entity + "_id",
		Message: fmt.Sprintf("%s %s does not exist", entity, id),
	}
}

// NewUnavailableError wraps a backend failure. The caller receives no data with it.
func NewUnavailableError(code string, cause error) *Error {
	return &Error{
		Kind:    KindBackendUnavailable,
		Code:    code,
		Message: "backend is unavailable",
		Err:     cause,
	}
}

// KindOf returns the kind of err, or "" when err is not a scheduling error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
