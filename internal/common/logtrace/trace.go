package logtrace

import (
	"context"

	"github.com/google/uuid"

	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

// WithRequestID returns a context carrying id. Requests sent through the SDK
// with that context log it as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return hoapi.WithRequestID(ctx, id)
}

// NewRequestID returns a fresh time-ordered request id.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIDFromContext(ctx context.Context) string {
	return hoapi.RequestIDFromContext(ctx)
}
