package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/server/internal/observability"
)

// Client event names.
const (
	EventSessionCreated = "session_created"
	EventMessageCreated = "message_created"
	EventAgentSelected  = "agent_selected"
	EventThought        = "thought"
	EventToolCode       = "tool_code"
	EventToolArgsStream = "tool_args_stream"
	EventToolStart      = "tool_start"
	EventToolEnd        = "tool_end"
	EventError          = "error"

	EventDocAnalysis = "doc_analysis"
	EventDocFinal    = "doc_final"
)

// ErrStreamClosed indicates the client stream can no longer be written.
var ErrStreamClosed = errors.New("event stream closed")

// EventSink receives client events in order.
type EventSink interface {
	Send(event string, data any) error
}

// SSEWriter writes events as text/event-stream frames, flushing each one.
type SSEWriter struct {
	mu      sync.Mutex
	resp    *echo.Response
	started bool
}

// NewSSEWriter wraps an echo response.
func NewSSEWriter(resp *echo.Response) *SSEWriter {
	return &SSEWriter{resp: resp}
}

func (w *SSEWriter) start() {
	if w.started {
		return
	}
	h := w.resp.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.resp.WriteHeader(http.StatusOK)
	w.started = true
}

// Send writes one frame: "event: <name>\ndata: <json>\n\n".
func (w *SSEWriter) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s event", event)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.start()
	if _, err := fmt.Fprintf(w.resp, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return errors.Wrap(ErrStreamClosed, err.Error())
	}
	w.resp.Flush()
	observability.GlobalMetrics().RecordStreamEvent()
	return nil
}

// Payloads.

type SessionCreatedPayload struct {
	SessionID int64 `json:"session_id"`
}

type MessageCreatedPayload struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type AgentSelectedPayload struct {
	Agent string `json:"agent"`
}

type ContentPayload struct {
	Content string `json:"content"`
}

type ToolArgsPayload struct {
	Args string `json:"args"`
}

type ToolStartPayload struct {
	Tool  string `json:"tool"`
	Input any    `json:"input"`
}

type ToolEndPayload struct {
	Output string `json:"output"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type DocAnalysisPayload struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}
