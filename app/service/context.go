package service

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// WithRequestID stores the HTTP request ID, or the queue entry's message ID, in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok && requestID != ""
}

func logFields(ctx context.Context, fields log.Fields) log.Fields {
	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields["request_id"] = requestID
	}
	return fields
}
