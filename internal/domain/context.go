package domain

import "context"

type ctxKeyIdempotencyKey struct{}

// WithIdempotencyKey attaches the client-supplied X-Idempotency-Key to ctx,
// the way request-scoped, optional cross-cutting values travel through
// this codebase. Engine operations read it back with
// IdempotencyKeyFromContext to fence a write against retransmission.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKeyIdempotencyKey{}, key)
}

// IdempotencyKeyFromContext returns the key set by WithIdempotencyKey, or
// "" if none was set — fencing is always optional.
func IdempotencyKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIdempotencyKey{}).(string); ok {
		return v
	}
	return ""
}
