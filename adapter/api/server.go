// Package api provides the HTTP API of the workshop scheduler.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fleetworks/workshop/internal/appointments/application/services"
	"github.com/fleetworks/workshop/pkg/observability"
)

// Server is the HTTP API server for appointment scheduling.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	handler *AppointmentHandler
	health  *observability.HealthRegistry
	metrics *observability.InMemoryMetrics
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Location interprets day=YYYY-MM-DD query parameters.
	Location *time.Location
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Location:     time.UTC,
	}
}

// NewServer creates a new API server over backend.
func NewServer(
	cfg ServerConfig,
	backend services.Backend,
	health *observability.HealthRegistry,
	metrics *observability.InMemoryMetrics,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = observability.NewHealthRegistry()
	}
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		handler: NewAppointmentHandler(backend, cfg.Location, logger),
		health:  health,
		metrics: metrics,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleLiveness)
	s.mux.HandleFunc("GET /readyz", s.handleReadiness)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Appointments
	s.mux.HandleFunc("POST /api/v1/appointments", s.handler.RequestAppointment)
	s.mux.HandleFunc("GET /api/v1/appointments", s.handler.ListAppointments)
	s.mux.HandleFunc("GET /api/v1/appointments/{id}", s.handler.LoadContext)
	s.mux.HandleFunc("GET /api/v1/appointments/{id}/history", s.handler.History)
	s.mux.HandleFunc("POST /api/v1/appointments/{id}/confirm-and-assign", s.handler.SubmitAssignment)
	s.mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", s.handler.SubmitCancellation)
	s.mux.HandleFunc("POST /api/v1/appointments/{id}/tow-dispatched", s.handler.DispatchTow)

	// Mechanics
	s.mux.HandleFunc("GET /api/v1/mechanics", s.handler.ListMechanics)
	s.mux.HandleFunc("POST /api/v1/mechanics", s.handler.RegisterMechanic)
	s.mux.HandleFunc("PATCH /api/v1/mechanics/{id}", s.handler.SetMechanicActive)
	s.mux.HandleFunc("GET /api/v1/mechanics/{id}/agenda", s.handler.Agenda)
	s.mux.HandleFunc("GET /api/v1/mechanics/{id}/slots", s.handler.ListOfferableSlots)
}

// Handler returns the routed mux behind the request middleware and the
// OpenTelemetry server instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.withRequestContext(s.mux), "workshop-api")
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	overall := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if overall.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting workshop API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down workshop API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}
