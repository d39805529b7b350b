package logging

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for logging values.
// Using private types to avoid key collisions.
type contextKey int

const (
	invocationKey contextKey = iota
	sessionIDKey
	componentKey
	eventKey
	gateKey
)

// WithInvocation tags the context with a fresh invocation ID so all log
// lines from one hook process can be grouped.
func WithInvocation(ctx context.Context) context.Context {
	return context.WithValue(ctx, invocationKey, uuid.NewString())
}

// WithSession adds the host's session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithComponent adds a component name to the context.
// Component names identify the subsystem generating logs (e.g., "dispatch", "session").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithEvent adds the hook event name to the context.
func WithEvent(ctx context.Context, event string) context.Context {
	return context.WithValue(ctx, eventKey, event)
}

// WithGate adds the gate currently executing to the context.
func WithGate(ctx context.Context, gate string) context.Context {
	return context.WithValue(ctx, gateKey, gate)
}

// InvocationIDFromContext extracts the invocation ID from the context.
// Returns empty string if not set.
func InvocationIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(invocationKey).(string); ok {
		return s
	}
	return ""
}

// EventFromContext extracts the hook event name from the context.
// Returns empty string if not set.
func EventFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(eventKey).(string); ok {
		return s
	}
	return ""
}

// GateFromContext extracts the gate name from the context.
// Returns empty string if not set.
func GateFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(gateKey).(string); ok {
		return s
	}
	return ""
}
