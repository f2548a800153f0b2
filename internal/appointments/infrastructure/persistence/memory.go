package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// InMemoryStore keeps appointments, mechanics and history in process memory.
// It enforces the same uniqueness and version rules as the SQL schema and is
// used by tests and the zero-config development backend.
type InMemoryStore struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]domain.AppointmentSnapshot
	mechanics    map[uuid.UUID]domain.Mechanic
	history      map[uuid.UUID][]domain.StatusChange
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		appointments: make(map[uuid.UUID]domain.AppointmentSnapshot),
		mechanics:    make(map[uuid.UUID]domain.Mechanic),
		history:      make(map[uuid.UUID][]domain.StatusChange),
	}
}

// Appointments returns the store as an AppointmentRepository.
func (s *InMemoryStore) Appointments() *InMemoryAppointmentRepository {
	return &InMemoryAppointmentRepository{store: s}
}

// Mechanics returns the store as a MechanicRepository.
func (s *InMemoryStore) Mechanics() *InMemoryMechanicRepository {
	return &InMemoryMechanicRepository{store: s}
}

// History returns the store as a HistoryRepository.
func (s *InMemoryStore) History() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{store: s}
}

// InMemoryAppointmentRepository implements domain.AppointmentRepository and
// domain.AgendaReader.
type InMemoryAppointmentRepository struct {
	store *InMemoryStore
}

var (
	_ domain.AppointmentRepository = (*InMemoryAppointmentRepository)(nil)
	_ domain.AgendaReader          = (*InMemoryAppointmentRepository)(nil)
	_ domain.MechanicRepository    = (*InMemoryMechanicRepository)(nil)
	_ domain.HistoryRepository     = (*InMemoryHistoryRepository)(nil)
)

func (r *InMemoryAppointmentRepository) Create(_ context.Context, appointment *domain.Appointment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := appointment.Snapshot()
	if _, exists := s.appointments[snap.ID]; exists {
		return domain.ErrActiveAppointmentExists
	}
	if snap.Status.IsActive() && s.vehicleHeldLocked(snap.VehiclePlate, snap.ID) {
		return domain.ErrActiveAppointmentExists
	}
	if snap.Status == domain.StatusConfirmed && s.slotHeldLocked(snap) {
		return domain.NewSlotConflictError(nil)
	}
	s.appointments[snap.ID] = snap
	return nil
}

func (r *InMemoryAppointmentRepository) Save(_ context.Context, appointment *domain.Appointment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := appointment.Snapshot()
	stored, ok := s.appointments[snap.ID]
	if !ok || stored.Version != snap.Version {
		return domain.NewStaleStateError(snap.Version)
	}
	if snap.Status == domain.StatusConfirmed && s.slotHeldLocked(snap) {
		return domain.NewSlotConflictError(nil)
	}
	if snap.Status.IsActive() && s.vehicleHeldLocked(snap.VehiclePlate, snap.ID) {
		return domain.ErrActiveAppointmentExists
	}

	snap.Version++
	s.appointments[snap.ID] = snap
	appointment.IncrementVersion()
	return nil
}

func (r *InMemoryAppointmentRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.appointments[id]
	if !ok {
		return nil, nil
	}
	return domain.RehydrateAppointment(snap), nil
}

func (r *InMemoryAppointmentRepository) HasActiveForVehicle(_ context.Context, plate string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicleHeldLocked(domain.NormalizePlate(plate), uuid.Nil), nil
}

func (r *InMemoryAppointmentRepository) List(_ context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := make([]domain.AppointmentSnapshot, 0, len(s.appointments))
	for _, snap := range s.appointments {
		if matchesFilter(snap, filter) {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	if filter.Limit > 0 && len(snaps) > filter.Limit {
		snaps = snaps[:filter.Limit]
	}

	result := make([]*domain.Appointment, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, domain.RehydrateAppointment(snap))
	}
	return result, nil
}

// BookedSlots returns the confirmed and finished appointments of a mechanic.
func (r *InMemoryAppointmentRepository) BookedSlots(_ context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var slots []domain.BookedSlot
	for _, snap := range s.appointments {
		if !holdsSlot(snap.Status) || snap.AssignedMechanicID == nil || *snap.AssignedMechanicID != mechanicID {
			continue
		}
		at := *snap.AssignedAt
		if at.Before(from) || !at.Before(to) {
			continue
		}
		slots = append(slots, domain.BookedSlot{AppointmentID: snap.ID, MechanicID: mechanicID, At: at})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].At.Before(slots[j].At) })
	return slots, nil
}

func (s *InMemoryStore) slotHeldLocked(snap domain.AppointmentSnapshot) bool {
	if snap.AssignedMechanicID == nil || snap.AssignedAt == nil {
		return false
	}
	for id, other := range s.appointments {
		if id == snap.ID || other.Status != domain.StatusConfirmed || other.AssignedMechanicID == nil {
			continue
		}
		if *other.AssignedMechanicID == *snap.AssignedMechanicID && other.AssignedAt.Equal(*snap.AssignedAt) {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) vehicleHeldLocked(plate string, except uuid.UUID) bool {
	for id, other := range s.appointments {
		if id != except && other.VehiclePlate == plate && other.Status.IsActive() {
			return true
		}
	}
	return false
}

func holdsSlot(status domain.Status) bool {
	return status == domain.StatusConfirmed || status == domain.StatusCompleted
}

func matchesFilter(snap domain.AppointmentSnapshot, f domain.AppointmentFilter) bool {
	if f.Status != "" && snap.Status != f.Status {
		return false
	}
	if f.MechanicID != uuid.Nil && (snap.AssignedMechanicID == nil || *snap.AssignedMechanicID != f.MechanicID) {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		if snap.AssignedAt == nil {
			return false
		}
		if !f.From.IsZero() && snap.AssignedAt.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && !snap.AssignedAt.Before(f.To) {
			return false
		}
	}
	return true
}

// InMemoryMechanicRepository implements domain.MechanicRepository.
type InMemoryMechanicRepository struct {
	store *InMemoryStore
}

func (r *InMemoryMechanicRepository) Save(_ context.Context, mechanic *domain.Mechanic) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mechanics[mechanic.ID] = *mechanic
	return nil
}

func (r *InMemoryMechanicRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Mechanic, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mechanics[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *InMemoryMechanicRepository) ListEligible(_ context.Context) ([]domain.Mechanic, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Mechanic, 0, len(s.mechanics))
	for _, m := range s.mechanics {
		if m.Active {
			result = append(result, m)
		}
	}
	sortMechanics(result)
	return result, nil
}

func sortMechanics(ms []domain.Mechanic) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Name != ms[j].Name {
			return ms[i].Name < ms[j].Name
		}
		return ms[i].ID.String() < ms[j].ID.String()
	})
}

// InMemoryHistoryRepository implements domain.HistoryRepository.
type InMemoryHistoryRepository struct {
	store *InMemoryStore
}

func (r *InMemoryHistoryRepository) Append(_ context.Context, change domain.StatusChange) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[change.AppointmentID] = append(s.history[change.AppointmentID], change)
	return nil
}

func (r *InMemoryHistoryRepository) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[appointmentID]
	out := make([]domain.StatusChange, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
