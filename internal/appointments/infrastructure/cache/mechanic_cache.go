// Package cache keeps the mechanic directory in Redis so the assignment
// screen does not hit the database on every load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/pkg/observability"
)

const (
	eligibleKey       = "workshop:mechanics:eligible"
	mechanicKeyPrefix = "workshop:mechanic:"

	// DefaultTTL applies when the configured TTL is not positive.
	DefaultTTL = 5 * time.Minute
)

// Client is the subset of *redis.Client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedMechanic struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCached(m domain.Mechanic) cachedMechanic {
	return cachedMechanic{ID: m.ID, Name: m.Name, Active: m.Active, CreatedAt: m.CreatedAt}
}

func (c cachedMechanic) toDomain() domain.Mechanic {
	return domain.Mechanic{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt}
}

// MechanicRepository decorates a domain.MechanicRepository with a
// read-through Redis cache. Redis failures degrade to the inner repository.
type MechanicRepository struct {
	inner   domain.MechanicRepository
	client  Client
	ttl     time.Duration
	metrics observability.Metrics
	logger  *slog.Logger
}

var _ domain.MechanicRepository = (*MechanicRepository)(nil)

// NewMechanicRepository wraps inner. A nil client disables caching.
func NewMechanicRepository(
	inner domain.MechanicRepository,
	client Client,
	ttl time.Duration,
	metrics observability.Metrics,
	logger *slog.Logger,
) *MechanicRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MechanicRepository{inner: inner, client: client, ttl: ttl, metrics: metrics, logger: logger}
}

// Save writes through and drops the cached entries. Inside a transaction a
// concurrent reader can refill them from the pre-commit row, so callers
// invalidate again once the transaction has committed.
func (r *MechanicRepository) Save(ctx context.Context, mechanic *domain.Mechanic) error {
	if err := r.inner.Save(ctx, mechanic); err != nil {
		return err
	}
	r.Invalidate(ctx, mechanic.ID)
	return nil
}

// Invalidate drops the cached entry for id and the eligible list.
func (r *MechanicRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, eligibleKey, mechanicKeyPrefix+id.String()).Err(); err != nil {
		r.metrics.Counter(observability.MetricCacheErrors, 1, observability.T("op", "invalidate"))
		r.logger.WarnContext(ctx, "mechanic cache invalidation failed",
			"mechanic_id", id,
			"error", err,
		)
	}
}

// FindByID returns nil, nil when the mechanic does not exist. Misses are
// not cached.
func (r *MechanicRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Mechanic, error) {
	key := mechanicKeyPrefix + id.String()

	var cached cachedMechanic
	if r.lookup(ctx, key, &cached) {
		m := cached.toDomain()
		return &m, nil
	}

	mechanic, err := r.inner.FindByID(ctx, id)
	if err != nil || mechanic == nil {
		return mechanic, err
	}
	r.store(ctx, key, toCached(*mechanic))
	return mechanic, nil
}

// ListEligible returns the active mechanics.
func (r *MechanicRepository) ListEligible(ctx context.Context) ([]domain.Mechanic, error) {
	var cached []cachedMechanic
	if r.lookup(ctx, eligibleKey, &cached) {
		mechanics := make([]domain.Mechanic, 0, len(cached))
		for _, c := range cached {
			mechanics = append(mechanics, c.toDomain())
		}
		return mechanics, nil
	}

	mechanics, err := r.inner.ListEligible(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]cachedMechanic, 0, len(mechanics))
	for _, m := range mechanics {
		entries = append(entries, toCached(m))
	}
	r.store(ctx, eligibleKey, entries)
	return mechanics, nil
}

// lookup reports whether key was found and decoded into dst.
func (r *MechanicRepository) lookup(ctx context.Context, key string, dst any) bool {
	if r.client == nil {
		return false
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.Counter(observability.MetricCacheMisses, 1)
		return false
	}
	if err != nil {
		r.metrics.Counter(observability.MetricCacheErrors, 1, observability.T("op", "get"))
		r.logger.WarnContext(ctx, "mechanic cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.metrics.Counter(observability.MetricCacheErrors, 1, observability.T("op", "decode"))
		return false
	}
	r.metrics.Counter(observability.MetricCacheHits, 1)
	return true
}

func (r *MechanicRepository) store(ctx context.Context, key string, value any) {
	if r.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.metrics.Counter(observability.MetricCacheErrors, 1, observability.T("op", "set"))
		r.logger.WarnContext(ctx, "mechanic cache write failed", "key", key, "error", err)
	}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
