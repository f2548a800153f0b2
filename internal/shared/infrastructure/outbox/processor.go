package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/workshop/internal/shared/infrastructure/eventbus"
	"github.com/fleetworks/workshop/pkg/observability"
)

// Metric names reported by the processor.
const (
	MetricPublished = "outbox.published"
	MetricRetried   = "outbox.retried"
	MetricDead      = "outbox.dead_lettered"
	MetricLag       = "outbox.lag_seconds"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	// Retention is how long published rows are kept. Zero disables cleanup.
	Retention       time.Duration
	CleanupInterval time.Duration
}

// DefaultProcessorConfig returns the defaults used by the worker.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     100 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
		Retention:        7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// backoff returns the delay before attempt n (1-based): base doubled per
// earlier attempt, capped at RetryBackoffMax.
func (c ProcessorConfig) backoff(n int) time.Duration {
	base, ceiling := c.RetryBackoffBase, c.RetryBackoffMax
	if base <= 0 {
		base = time.Second
	}
	if ceiling <= 0 {
		ceiling = time.Minute
	}

	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithMetrics reports delivery outcomes and lag to m.
func WithMetrics(m observability.Metrics) ProcessorOption {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

// outcome is what happened to one message in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

// Processor relays outbox rows to the broker. Delivery is at least once, so
// consumers must tolerate duplicates.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger
	metrics   observability.Metrics

	mu      sync.Mutex
	wg      sync.WaitGroup
	stop    chan struct{}
	running bool

	statsMu sync.Mutex
	stats   Stats
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "outbox"),
		metrics:   observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop in a goroutine. Starting a running
// processor does nothing.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.stop = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx, p.stop)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"retention", p.config.Retention,
	)
	return nil
}

// Stop ends the loop and waits for the in-flight batch.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

// IsRunning reports whether the polling loop is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()

	var cleanup <-chan time.Time
	if p.config.Retention > 0 && p.config.CleanupInterval > 0 {
		t := time.NewTicker(p.config.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-poll.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("outbox batch failed", "error", err)
			}
		case <-cleanup:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error("outbox cleanup failed", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch of pending messages. Publish failures are
// recorded on the rows; only a failure to read the batch is returned.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	batch, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.record(outcomeRetry, err, false)
		return err
	}
	p.observeLag(batch)

	for _, msg := range batch {
		result, err := p.deliver(ctx, msg)
		p.record(result, err, true)
		p.metrics.Counter(metricFor(result), 1, observability.T("routing_key", msg.RoutingKey))
	}
	return nil
}

// deliver publishes msg and settles its row.
func (p *Processor) deliver(ctx context.Context, msg *Message) (outcome, error) {
	ctx = messageContext(ctx, msg)

	pubErr := p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload)
	if pubErr == nil {
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			p.logger.ErrorContext(ctx, "published message not marked",
				"id", msg.ID,
				"event_id", msg.EventID,
				"error", err,
			)
		}
		return outcomePublished, nil
	}

	attempt := msg.RetryCount + 1
	p.logger.WarnContext(ctx, "publish failed",
		"id", msg.ID,
		"event_id", msg.EventID,
		"routing_key", msg.RoutingKey,
		"attempt", attempt,
		"error", pubErr,
	)

	if p.config.MaxRetries <= 0 || attempt >= p.config.MaxRetries {
		if err := p.repo.MarkDead(ctx, msg.ID, pubErr.Error()); err != nil {
			p.logger.ErrorContext(ctx, "dead letter not recorded", "id", msg.ID, "error", err)
		}
		return outcomeDead, pubErr
	}

	next := time.Now().Add(p.config.backoff(attempt))
	if err := p.repo.MarkFailed(ctx, msg.ID, pubErr.Error(), next); err != nil {
		p.logger.ErrorContext(ctx, "retry not scheduled", "id", msg.ID, "error", err)
	}
	return outcomeRetry, pubErr
}

// messageContext carries the event's correlation and operator ids so log
// lines for the message can be joined with the request that produced it.
func messageContext(ctx context.Context, msg *Message) context.Context {
	if len(msg.Metadata) == 0 {
		return ctx
	}
	var meta eventbus.EventMetadata
	if err := json.Unmarshal(msg.Metadata, &meta); err != nil {
		return ctx
	}
	if meta.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, meta.CorrelationID)
	}
	if meta.OperatorID != uuid.Nil {
		ctx = observability.WithOperatorID(ctx, meta.OperatorID)
	}
	return ctx
}

// Cleanup deletes published messages past the retention window.
func (p *Processor) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := p.repo.DeleteOld(ctx, p.config.Retention)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("outbox cleanup", "deleted", deleted)
	}
	return deleted, nil
}

func metricFor(o outcome) string {
	switch o {
	case outcomePublished:
		return MetricPublished
	case outcomeDead:
		return MetricDead
	default:
		return MetricRetried
	}
}

// Stats is a snapshot of processor activity for health endpoints.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

// GetStats returns current processor statistics.
func (p *Processor) GetStats() Stats {
	running := p.IsRunning()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := p.stats
	s.IsRunning = running
	return s
}

// record counts one delivery. counted is false for batch read errors,
// which update the last error without touching the counters.
func (p *Processor) record(o outcome, err error, counted bool) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	if counted {
		switch o {
		case outcomePublished:
			p.stats.PublishedCount++
		case outcomeRetry:
			p.stats.FailedCount++
		case outcomeDead:
			p.stats.DeadCount++
		}
	}
	if err != nil {
		now := time.Now()
		p.stats.LastError = err.Error()
		p.stats.LastErrorAt = &now
	}
}

func (p *Processor) observeLag(batch []*Message) {
	now := time.Now()
	var oldest *time.Time
	for _, msg := range batch {
		if oldest == nil || msg.CreatedAt.Before(*oldest) {
			created := msg.CreatedAt
			oldest = &created
		}
	}

	lag := 0.0
	if oldest != nil {
		lag = now.Sub(*oldest).Seconds()
	}
	p.metrics.Gauge(MetricLag, lag)

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.LastProcessedAt = &now
	p.stats.OldestMessageAt = oldest
	p.stats.LagSeconds = lag
}
