package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers enrich the request context once and every log statement below picks the
// fields up through TraceHandler.
type LogFields struct {
	ChatSessionID *string // per-browser conversation identifier, not the auth session
	UserEmail     *string
	AppName       *string
	AuthSessionID *int64
	Component     string // e.g. "chat.relay.handler"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.ChatSessionID != nil {
		result.ChatSessionID = next.ChatSessionID
	}
	if next.UserEmail != nil {
		result.UserEmail = next.UserEmail
	}
	if next.AppName != nil {
		result.AppName = next.AppName
	}
	if next.AuthSessionID != nil {
		result.AuthSessionID = next.AuthSessionID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{UserEmail: logger.Ptr(email)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
