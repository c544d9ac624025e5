// Package context holds request-scoped values shared by middleware and handlers.
package context

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	participantKey
)

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetParticipant extracts the authenticated participant id from the context
func GetParticipant(ctx context.Context) string {
	if id, ok := ctx.Value(participantKey).(string); ok {
		return id
	}
	return ""
}

// SetParticipant adds the authenticated participant id to the context
func SetParticipant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, participantKey, id)
}
