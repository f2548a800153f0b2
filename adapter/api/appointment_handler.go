package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
	"github.com/fleetworks/workshop/internal/appointments/application/services"
	"github.com/fleetworks/workshop/pkg/observability"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// AppointmentHandler handles appointment and mechanic HTTP requests.
type AppointmentHandler struct {
	backend services.Backend
	loc     *time.Location
	logger  *slog.Logger
}

// NewAppointmentHandler creates a new appointment handler.
func NewAppointmentHandler(backend services.Backend, loc *time.Location, logger *slog.Logger) *AppointmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{backend: backend, loc: loc, logger: logger}
}

// RequestAppointment handles POST /api/v1/appointments.
func (h *AppointmentHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	var req RequestAppointmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dto, err := h.backend.RequestAppointment(r.Context(), commands.RequestAppointmentCommand{
		OperatorID:     observability.OperatorIDFromContext(r.Context()),
		VehiclePlate:   req.VehiclePlate,
		DriverID:       req.DriverID,
		ReasonForVisit: req.ReasonForVisit,
		TowRequested:   req.TowRequested,
		TowAddress:     req.TowAddress,
		Maintenance:    req.Maintenance,
		DamageImageRef: req.DamageImageRef,
		RequestedAt:    req.RequestedAt,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListAppointments handles GET /api/v1/appointments.
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := queries.ListAppointmentsQuery{Status: q.Get("status")}

	if raw := q.Get("mechanic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "mechanic_id", "mechanic_id must be a UUID")
			return
		}
		query.MechanicID = id
	}
	for field, dst := range map[string]*time.Time{"from": &query.From, "to": &query.To} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		t, err := h.parseInstantOrDay(raw)
		if err != nil {
			writeBadRequest(w, field, field+" must be RFC3339 or YYYY-MM-DD")
			return
		}
		*dst = t
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit", "limit must be a non-negative integer")
			return
		}
		query.Limit = limit
	}

	appointments, err := h.backend.ListAppointments(r.Context(), query)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

// LoadContext handles GET /api/v1/appointments/{id}.
func (h *AppointmentHandler) LoadContext(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	appointmentCtx, err := h.backend.LoadContext(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentCtx)
}

// History handles GET /api/v1/appointments/{id}/history.
func (h *AppointmentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	changes, err := h.backend.History(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

// SubmitAssignment handles POST /api/v1/appointments/{id}/confirm-and-assign.
func (h *AppointmentHandler) SubmitAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AssignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dto, err := h.backend.SubmitAssignment(r.Context(), commands.SubmitAssignmentCommand{
		AppointmentID: id,
		MechanicID:    req.MechanicID,
		AssignedAt:    req.AssignedAt,
		Reason:        req.Reason,
		OperatorID:    observability.OperatorIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// SubmitCancellation handles POST /api/v1/appointments/{id}/cancel.
func (h *AppointmentHandler) SubmitCancellation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CancelRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	dto, err := h.backend.SubmitCancellation(r.Context(), commands.SubmitCancellationCommand{
		AppointmentID: id,
		OperatorID:    observability.OperatorIDFromContext(r.Context()),
		Comment:       req.Comment,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DispatchTow handles POST /api/v1/appointments/{id}/tow-dispatched.
func (h *AppointmentHandler) DispatchTow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dto, err := h.backend.DispatchTow(r.Context(), commands.DispatchTowCommand{
		AppointmentID: id,
		OperatorID:    observability.OperatorIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListMechanics handles GET /api/v1/mechanics.
func (h *AppointmentHandler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.backend.ListMechanics(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mechanics)
}

// RegisterMechanic handles POST /api/v1/mechanics.
func (h *AppointmentHandler) RegisterMechanic(w http.ResponseWriter, r *http.Request) {
	var req RegisterMechanicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dto, err := h.backend.RegisterMechanic(r.Context(), commands.RegisterMechanicCommand{Name: req.Name})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// SetMechanicActive handles PATCH /api/v1/mechanics/{id}.
func (h *AppointmentHandler) SetMechanicActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SetMechanicActiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dto, err := h.backend.SetMechanicActive(r.Context(), commands.SetMechanicActiveCommand{MechanicID: id, Active: req.Active})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// Agenda handles GET /api/v1/mechanics/{id}/agenda?day=YYYY-MM-DD.
func (h *AppointmentHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	day, ok := h.queryDay(w, r)
	if !ok {
		return
	}
	booked, err := h.backend.Agenda(r.Context(), id, day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booked)
}

// ListOfferableSlots handles GET /api/v1/mechanics/{id}/slots?day=YYYY-MM-DD.
func (h *AppointmentHandler) ListOfferableSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	day, ok := h.queryDay(w, r)
	if !ok {
		return
	}
	slots, err := h.backend.ListOfferableSlots(r.Context(), id, day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) queryDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		writeBadRequest(w, "day", "day is required")
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		writeBadRequest(w, "day", "day must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func (h *AppointmentHandler) parseInstantOrDay(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, h.loc)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeBadRequest(w, name, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeBadRequest(w, "", "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalBody accepts an empty body.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "", "invalid JSON body")
		return false
	}
	return true
}
