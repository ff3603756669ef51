// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/masthead/pkg/contextkeys"
//	ctx = contextkeys.WithActorID(ctx, userID)
//	actorID := contextkeys.GetActorID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorIDKey contains the ID of the authenticated CMS user
	// Set by: middleware.ActorMiddleware (pkg/middleware/actor.go)
	// Required by: audit read endpoints
	// Type: int64
	ActorIDKey Key = "actor_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// SignalKey contains the name of the lifecycle signal being handled
	// Set by: hooks.Receiver
	// Used by: Logger
	// Type: string
	SignalKey Key = "signal"
)

// WithActorID adds the authenticated actor to the context
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// GetActorID retrieves the authenticated actor, 0 when there is none
func GetActorID(ctx context.Context) int64 {
	if actorID, ok := ctx.Value(ActorIDKey).(int64); ok {
		return actorID
	}
	return 0
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSignal records the lifecycle signal being handled
func WithSignal(ctx context.Context, signal string) context.Context {
	return context.WithValue(ctx, SignalKey, signal)
}

// GetSignal retrieves the lifecycle signal being handled
func GetSignal(ctx context.Context) string {
	if signal, ok := ctx.Value(SignalKey).(string); ok {
		return signal
	}
	return ""
}
