package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mechanic is a workshop technician who can hold appointments.
type Mechanic struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// NewMechanic registers an active mechanic.
func NewMechanic(name string, now time.Time) (*Mechanic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingMechanicName
	}
	return &Mechanic{
		ID:        uuid.New(),
		Name:      name,
		Active:    true,
		CreatedAt: now.UTC(),
	}, nil
}
