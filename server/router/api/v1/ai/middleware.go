package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hrygo/divinecanvas/plugin/ai"
	apierrors "github.com/hrygo/divinecanvas/server/internal/errors"
	"github.com/hrygo/divinecanvas/server/internal/observability"
)

// TurnContext carries client-side state for a turn.
type TurnContext struct {
	// CurrentCode is the artifact currently on the client's canvas.
	CurrentCode string `json:"current_code,omitempty"`
}

// ChatRequest represents one chat turn.
type ChatRequest struct {
	SessionID   *int64          `json:"session_id,omitempty"`
	AgentID     string          `json:"agent_id,omitempty"`
	Prompt      string          `json:"prompt"`
	Images      []string        `json:"images,omitempty"`
	History     []HistoryEntry  `json:"history,omitempty"`
	Context     TurnContext     `json:"context"`
	ParentID    *int64          `json:"parent_id,omitempty"`
	IsRetry     bool            `json:"is_retry"`
	ModelConfig *ai.ModelConfig `json:"model_config,omitempty"`

	// RequestID is set by the server from the X-Request-ID header.
	RequestID string `json:"-"`
}

// Retry reports whether the turn regenerates a reply under an existing
// user message.
func (r *ChatRequest) Retry() bool {
	return r.IsRetry && r.ParentID != nil
}

// Handler is the interface for handling chat requests.
type Handler interface {
	Handle(ctx context.Context, req *ChatRequest, sink EventSink) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *ChatRequest, sink EventSink) error

func (f HandlerFunc) Handle(ctx context.Context, req *ChatRequest, sink EventSink) error {
	return f(ctx, req, sink)
}

// Middleware is a function that wraps a handler.
type Middleware func(Handler) Handler

// Chain chains multiple middlewares together.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewValidationMiddleware rejects requests before any event is sent.
func NewValidationMiddleware() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *ChatRequest, sink EventSink) error {
			if strings.TrimSpace(req.Prompt) == "" && len(req.Images) == 0 && !req.Retry() {
				return apierrors.InvalidRequest("prompt is required")
			}
			if req.IsRetry && req.ParentID == nil {
				return apierrors.InvalidRequest("parent_id is required for a retry")
			}
			return next.Handle(ctx, req, sink)
		})
	}
}

// NewLoggingMiddleware attaches a request-scoped logger to the context.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *ChatRequest, sink EventSink) error {
			var sessionID int64
			if req.SessionID != nil {
				sessionID = *req.SessionID
			}
			reqCtx := observability.NewRequestContextWithID(logger, req.RequestID, req.AgentID, sessionID)
			reqCtx.Info("chat turn started",
				slog.Int(observability.LogFieldMessageLen, len(req.Prompt)),
				slog.Int("history_count", len(req.History)),
				slog.Bool("is_retry", req.IsRetry),
			)
			err := next.Handle(observability.WithRequestContext(ctx, reqCtx), req, sink)
			if err != nil {
				reqCtx.Error("chat turn rejected", err)
				return err
			}
			reqCtx.Info("chat turn finished", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
			return nil
		})
	}
}

// TruncateString truncates a string by runes for logging.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
