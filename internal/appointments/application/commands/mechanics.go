package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	sharedApplication "github.com/fleetworks/workshop/internal/shared/application"
)

// cacheInvalidator is implemented by mechanic repositories that cache reads.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// invalidateAfterCommit drops cached copies of a mechanic once its change is
// visible to other transactions.
func invalidateAfterCommit(ctx context.Context, repo domain.MechanicRepository, id uuid.UUID) {
	if c, ok := repo.(cacheInvalidator); ok {
		c.Invalidate(ctx, id)
	}
}

// RegisterMechanicCommand adds a mechanic to the directory.
type RegisterMechanicCommand struct {
	Name string
}

// RegisterMechanicHandler handles the RegisterMechanicCommand.
type RegisterMechanicHandler struct {
	mechanicRepo domain.MechanicRepository
	uow          sharedApplication.UnitOfWork
	now          func() time.Time
}

// NewRegisterMechanicHandler creates a new RegisterMechanicHandler.
func NewRegisterMechanicHandler(mechanicRepo domain.MechanicRepository, uow sharedApplication.UnitOfWork) *RegisterMechanicHandler {
	return &RegisterMechanicHandler{mechanicRepo: mechanicRepo, uow: uow, now: time.Now}
}

// Handle executes the RegisterMechanicCommand.
func (h *RegisterMechanicHandler) Handle(ctx context.Context, cmd RegisterMechanicCommand) (*domain.Mechanic, error) {
	mechanic, err := domain.NewMechanic(cmd.Name, h.now())
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return h.mechanicRepo.Save(txCtx, mechanic)
	})
	if err != nil {
		return nil, err
	}
	invalidateAfterCommit(ctx, h.mechanicRepo, mechanic.ID)
	return mechanic, nil
}

// SetMechanicActiveCommand toggles whether a mechanic can take appointments.
// Existing assignments are untouched.
type SetMechanicActiveCommand struct {
	MechanicID uuid.UUID
	Active     bool
}

// SetMechanicActiveHandler handles the SetMechanicActiveCommand.
type SetMechanicActiveHandler struct {
	mechanicRepo domain.MechanicRepository
	uow          sharedApplication.UnitOfWork
}

// NewSetMechanicActiveHandler creates a new SetMechanicActiveHandler.
func NewSetMechanicActiveHandler(mechanicRepo domain.MechanicRepository, uow sharedApplication.UnitOfWork) *SetMechanicActiveHandler {
	return &SetMechanicActiveHandler{mechanicRepo: mechanicRepo, uow: uow}
}

// Handle executes the SetMechanicActiveCommand.
func (h *SetMechanicActiveHandler) Handle(ctx context.Context, cmd SetMechanicActiveCommand) (*domain.Mechanic, error) {
	var result *domain.Mechanic

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		mechanic, err := h.mechanicRepo.FindByID(txCtx, cmd.MechanicID)
		if err != nil {
			return err
		}
		if mechanic == nil {
			return domain.NewNotFoundError("mechanic", cmd.MechanicID.String())
		}
		if mechanic.Active == cmd.Active {
			result = mechanic
			return nil
		}
		mechanic.Active = cmd.Active
		if err := h.mechanicRepo.Save(txCtx, mechanic); err != nil {
			return err
		}
		result = mechanic
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateAfterCommit(ctx, h.mechanicRepo, result.ID)
	return result, nil
}
