// Package backendclient talks to a running workshop API so the CLI can drive
// the scheduler remotely. It implements the same services.Backend the API
// serves, so callers cannot tell local and remote mode apart.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fleetworks/workshop/adapter/api"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
	"github.com/fleetworks/workshop/internal/appointments/application/services"
	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/internal/appointments/infrastructure/resilience"
	"github.com/fleetworks/workshop/pkg/observability"
)

const maxResponseBytes = 4 << 20

// Config configures the remote client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	OperatorID uuid.UUID
	Breaker    resilience.BreakerConfig

	// Location formats the day parameter of agenda and slot queries.
	Location *time.Location

	// HTTPClient overrides the instrumented default, mainly for tests.
	HTTPClient *http.Client
}

// Client is a services.Backend over HTTP.
type Client struct {
	baseURL    string
	timeout    time.Duration
	operatorID uuid.UUID
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	loc        *time.Location
}

var _ services.Backend = (*Client)(nil)

// New creates a remote backend client.
func New(cfg Config, metrics observability.Metrics, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = services.DefaultRequestTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = resilience.DefaultBreakerConfig("workshop-api")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		operatorID: cfg.OperatorID,
		http:       httpClient,
		breaker:    resilience.NewBreaker[struct{}](cfg.Breaker, metrics, logger),
		loc:        cfg.Location,
	}
	return c, nil
}

func (c *Client) LoadContext(ctx context.Context, appointmentID uuid.UUID) (*queries.AppointmentContext, error) {
	var out queries.AppointmentContext
	if err := c.do(ctx, http.MethodGet, "/api/v1/appointments/"+appointmentID.String(), nil, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOfferableSlots asks the server, whose clock and lead time decide. The
// result is still advisory; the slot is checked again on submit.
func (c *Client) ListOfferableSlots(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]time.Time, error) {
	params := url.Values{"day": {day.In(c.loc).Format(time.DateOnly)}}

	var out []time.Time
	if err := c.do(ctx, http.MethodGet, "/api/v1/mechanics/"+mechanicID.String()+"/slots", params, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitAssignment(ctx context.Context, cmd commands.SubmitAssignmentCommand) (*queries.AppointmentDTO, error) {
	body := api.AssignRequest{MechanicID: cmd.MechanicID, AssignedAt: cmd.AssignedAt, Reason: cmd.Reason}
	return c.appointmentCall(ctx, "/api/v1/appointments/"+cmd.AppointmentID.String()+"/confirm-and-assign", cmd.OperatorID, body)
}

func (c *Client) SubmitCancellation(ctx context.Context, cmd commands.SubmitCancellationCommand) (*queries.AppointmentDTO, error) {
	body := api.CancelRequest{Comment: cmd.Comment}
	return c.appointmentCall(ctx, "/api/v1/appointments/"+cmd.AppointmentID.String()+"/cancel", cmd.OperatorID, body)
}

func (c *Client) RequestAppointment(ctx context.Context, cmd commands.RequestAppointmentCommand) (*queries.AppointmentDTO, error) {
	body := api.RequestAppointmentRequest{
		VehiclePlate:   cmd.VehiclePlate,
		DriverID:       cmd.DriverID,
		ReasonForVisit: cmd.ReasonForVisit,
		TowRequested:   cmd.TowRequested,
		TowAddress:     cmd.TowAddress,
		Maintenance:    cmd.Maintenance,
		DamageImageRef: cmd.DamageImageRef,
		RequestedAt:    cmd.RequestedAt,
	}
	return c.appointmentCall(ctx, "/api/v1/appointments", cmd.OperatorID, body)
}

func (c *Client) ListAppointments(ctx context.Context, query queries.ListAppointmentsQuery) ([]queries.AppointmentDTO, error) {
	params := url.Values{}
	if query.Status != "" {
		params.Set("status", query.Status)
	}
	if query.MechanicID != uuid.Nil {
		params.Set("mechanic_id", query.MechanicID.String())
	}
	if !query.From.IsZero() {
		params.Set("from", query.From.Format(time.RFC3339))
	}
	if !query.To.IsZero() {
		params.Set("to", query.To.Format(time.RFC3339))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	var out []queries.AppointmentDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/appointments", params, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, appointmentID uuid.UUID) ([]queries.StatusChangeDTO, error) {
	var out []queries.StatusChangeDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/appointments/"+appointmentID.String()+"/history", nil, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DispatchTow(ctx context.Context, cmd commands.DispatchTowCommand) (*queries.AppointmentDTO, error) {
	return c.appointmentCall(ctx, "/api/v1/appointments/"+cmd.AppointmentID.String()+"/tow-dispatched", cmd.OperatorID, nil)
}

func (c *Client) Agenda(ctx context.Context, mechanicID uuid.UUID, day time.Time) ([]queries.BookedSlotDTO, error) {
	params := url.Values{"day": {day.In(c.loc).Format(time.DateOnly)}}

	var out []queries.BookedSlotDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/mechanics/"+mechanicID.String()+"/agenda", params, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMechanics(ctx context.Context) ([]queries.MechanicDTO, error) {
	var out []queries.MechanicDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/mechanics", nil, uuid.Nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RegisterMechanic(ctx context.Context, cmd commands.RegisterMechanicCommand) (*queries.MechanicDTO, error) {
	var out queries.MechanicDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/mechanics", nil, uuid.Nil, api.RegisterMechanicRequest{Name: cmd.Name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetMechanicActive(ctx context.Context, cmd commands.SetMechanicActiveCommand) (*queries.MechanicDTO, error) {
	var out queries.MechanicDTO
	body := api.SetMechanicActiveRequest{Active: cmd.Active}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/mechanics/"+cmd.MechanicID.String(), nil, uuid.Nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) appointmentCall(ctx context.Context, path string, operatorID uuid.UUID, body any) (*queries.AppointmentDTO, error) {
	var out queries.AppointmentDTO
	if err := c.do(ctx, http.MethodPost, path, nil, operatorID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type response struct {
	status int
	body   []byte
}

// do performs one request through the breaker. Transport failures and 5xx
// responses count against the breaker; 4xx responses are domain answers.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, operatorID uuid.UUID, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if operatorID == uuid.Nil {
		operatorID = c.operatorID
	}
	if operatorID != uuid.Nil {
		req.Header.Set(api.HeaderOperatorID, operatorID.String())
	}
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(api.HeaderCorrelationID, id)
	}

	var resp response
	_, err = c.breaker.Execute(func() (struct{}, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer r.Body.Close()

		data, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBytes))
		if err != nil {
			return struct{}{}, err
		}
		resp = response{status: r.StatusCode, body: data}
		if r.StatusCode >= http.StatusInternalServerError {
			return struct{}{}, fmt.Errorf("server returned %d", r.StatusCode)
		}
		return struct{}{}, nil
	})
	if resp.status == 0 {
		if resilience.IsOpen(err) {
			return domain.NewUnavailableError("circuit_open", err)
		}
		return domain.NewUnavailableError("transport", err)
	}

	if resp.status >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error body back into a *domain.Error.
func decodeError(resp response) error {
	var payload api.ErrorResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil || payload.Error.Kind == "" {
		if resp.status >= http.StatusInternalServerError {
			return domain.NewUnavailableError("transport", fmt.Errorf("server returned %d", resp.status))
		}
		return fmt.Errorf("unexpected response status %d", resp.status)
	}

	body := payload.Error
	switch body.Kind {
	case api.KindBadRequest:
		return &domain.Error{Kind: domain.KindValidation, Code: body.Code, Field: body.Field, Message: body.Message}
	case "internal":
		return fmt.Errorf("server error: %s", body.Message)
	}
	return &domain.Error{
		Kind:    domain.ErrorKind(body.Kind),
		Code:    body.Code,
		Field:   body.Field,
		Message: body.Message,
	}
}
