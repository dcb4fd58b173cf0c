package hoapi

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying id. Send logs it as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "" when the
// context is nil or carries none.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, _ := ctx.Value(requestIDKey{}).(string)
	return r
}
