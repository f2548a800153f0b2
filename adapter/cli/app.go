package cli

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/appointments/application/services"
	"github.com/fleetworks/workshop/pkg/observability"
)

// ErrNotInitialized is returned by commands run before SetApp.
var ErrNotInitialized = errors.New("application not initialized - database connection or WORKSHOP_API_URL required")

// App holds the CLI application dependencies. Backend is either the local
// scheduler or the remote API client.
type App struct {
	Backend services.Backend

	// Migrate applies the database schema. It is nil in remote mode.
	Migrate func(ctx context.Context) error

	// Health runs the local readiness checks. It is nil in remote mode.
	Health *observability.HealthRegistry

	// Operator recorded on every change (configured per environment)
	OperatorID uuid.UUID

	// Location is the workshop time zone used to parse and print times.
	Location *time.Location
}

// NewApp creates a new CLI application over a backend.
func NewApp(backend services.Backend, operatorID uuid.UUID, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		Backend:    backend,
		OperatorID: operatorID,
		Location:   loc,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the application or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil || app.Backend == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}
