package llm

import "context"

type requestIDKey struct{}

// WithRequestID tags ctx so outgoing calls carry the caller's request id
// in X-Request-ID and in logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
