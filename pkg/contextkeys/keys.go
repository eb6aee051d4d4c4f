// Package contextkeys holds the context keys shared across labstock packages.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey holds the request id string.
	// Set by httputil.RequestIDMiddleware.
	RequestIDKey Key = "request_id"

	// PrincipalKey holds the signed-in principal's name.
	// Set by the api unit of work once the bearer token resolves.
	PrincipalKey Key = "principal"

	// LoggerKey holds the request *observability.Logger.
	LoggerKey Key = "logger"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithPrincipal records the name of the principal acting in ctx.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, PrincipalKey, name)
}

// GetPrincipal returns the acting principal's name, or "" for anonymous
// requests.
func GetPrincipal(ctx context.Context) string {
	name, _ := ctx.Value(PrincipalKey).(string)
	return name
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
