package domain

import "fmt"

// Status is the lifecycle state of an appointment. Values match the
// labels stored by the workshop backend.
type Status string

const (
	StatusScheduled Status = "Programado"
	StatusConfirmed Status = "Confirmado"
	StatusCompleted Status = "Finalizado"
	StatusCancelled Status = "Cancelado"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether the appointment still occupies its vehicle.
func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

func (s Status) String() string { return string(s) }

// ParseStatus validates a stored or user-supplied status label.
func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", v)
}
