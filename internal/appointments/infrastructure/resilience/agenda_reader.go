package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/pkg/observability"
)

// AgendaReader wraps a domain.AgendaReader in a circuit breaker. Every
// failure reaches the caller as a BackendUnavailable error.
type AgendaReader struct {
	inner   domain.AgendaReader
	breaker *gobreaker.CircuitBreaker[[]domain.BookedSlot]
	metrics observability.Metrics
}

var _ domain.AgendaReader = (*AgendaReader)(nil)

// NewAgendaReader creates a breaker-guarded agenda reader.
func NewAgendaReader(inner domain.AgendaReader, cfg BreakerConfig, metrics observability.Metrics, logger *slog.Logger) *AgendaReader {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.Name == "" {
		cfg.Name = "agenda"
	}
	return &AgendaReader{
		inner:   inner,
		breaker: NewBreaker[[]domain.BookedSlot](cfg, metrics, logger),
		metrics: metrics,
	}
}

// BookedSlots reads the mechanic's agenda through the breaker.
func (r *AgendaReader) BookedSlots(ctx context.Context, mechanicID uuid.UUID, from, to time.Time) ([]domain.BookedSlot, error) {
	booked, err := r.breaker.Execute(func() ([]domain.BookedSlot, error) {
		return r.inner.BookedSlots(ctx, mechanicID, from, to)
	})
	if err == nil {
		return booked, nil
	}
	if IsOpen(err) {
		r.metrics.Counter(observability.MetricBreakerRejected, 1, observability.T("breaker", r.breaker.Name()))
		return nil, domain.NewUnavailableError("circuit_open", err)
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindBackendUnavailable {
		return nil, err
	}
	return nil, domain.NewUnavailableError("agenda_fetch_failed", err)
}

// State exposes the breaker state for health reporting.
func (r *AgendaReader) State() gobreaker.State {
	return r.breaker.State()
}
