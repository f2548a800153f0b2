package observability

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	correlationIDCtx ctxKey = iota
	requestIDCtx
	operatorIDCtx
)

// Attribute keys the context handler writes to log records.
const (
	CorrelationIDKey = "correlation_id"
	RequestIDKey     = "request_id"
	OperatorIDKey    = "operator_id"
	OperationKey     = "operation"
)

// WithCorrelationID ties ctx to a chain of requests and events. An empty id
// starts a new chain.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDCtx, id)
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return valueOf[string](ctx, correlationIDCtx)
}

// WithRequestID tags ctx with one inbound request. An empty id is replaced
// by a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDCtx, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return valueOf[string](ctx, requestIDCtx)
}

// WithOperatorID records the workshop operator acting in this context.
func WithOperatorID(ctx context.Context, operatorID uuid.UUID) context.Context {
	return context.WithValue(ctx, operatorIDCtx, operatorID)
}

// OperatorIDFromContext returns the acting operator, or uuid.Nil.
func OperatorIDFromContext(ctx context.Context) uuid.UUID {
	return valueOf[uuid.UUID](ctx, operatorIDCtx)
}

// NewRequestContext starts a request: a new request id, and the caller's
// correlation id when it sent one.
func NewRequestContext(ctx context.Context, parentCorrelationID string) context.Context {
	return WithCorrelationID(WithRequestID(ctx, ""), parentCorrelationID)
}

func valueOf[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}
