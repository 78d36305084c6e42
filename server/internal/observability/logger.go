package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldSessionID is the field name for chat session ID.
	LogFieldSessionID = "session_id"
	// LogFieldAgentType is the field name for agent type.
	LogFieldAgentType = "agent_type"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldMessageLen is the field name for message length.
	LogFieldMessageLen = "message_length"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldEventType is the field name for event type.
	LogFieldEventType = "event_type"
)

// RequestContext represents the context for a single request with structured logging.
type RequestContext struct {
	RequestID string
	SessionID int64
	AgentType string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a new request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, agentType string, sessionID int64) *RequestContext {
	return NewRequestContextWithID(logger, generateRequestID(), agentType, sessionID)
}

// NewRequestContextWithID creates a new request context with a specific request ID.
// An empty requestID gets a generated one.
func NewRequestContextWithID(logger *slog.Logger, requestID, agentType string, sessionID int64) *RequestContext {
	if requestID == "" {
		requestID = generateRequestID()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: requestID,
		SessionID: sessionID,
		AgentType: agentType,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a new logger with additional fields.
func (r *RequestContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	combined := r.baseAttrsAppended(attrs...)
	args := make([]any, 0, len(combined))
	for _, attr := range combined {
		args = append(args, attr)
	}
	return r.Logger.With(args...)
}

// Info logs an info message.
func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

func (r *RequestContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.Int64(LogFieldSessionID, r.SessionID),
		slog.String(LogFieldAgentType, r.AgentType),
	}
}

func (r *RequestContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(r.baseAttrs(), attrs...)
}

func generateRequestID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithRequestContext adds the request context to the context.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context from the context.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}
