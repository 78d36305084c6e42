package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/agent"
	"github.com/hrygo/divinecanvas/plugin/ai/graph"
	"github.com/hrygo/divinecanvas/server/internal/observability"
	"github.com/hrygo/divinecanvas/store"
)

const (
	// sessionTitleRunes is how much of the first prompt becomes the title.
	sessionTitleRunes = 30
	defaultTitle      = "New Chat"
)

// ChatService runs chat turns: anchoring, history assembly, the graph run
// and translation to client events.
// ChatService 执行对话回合。
type ChatService struct {
	store *store.Store
	graph *graph.Graph
}

// NewChatService creates a chat service.
func NewChatService(s *store.Store, g *graph.Graph) *ChatService {
	return &ChatService{store: s, graph: g}
}

// Handle implements Handler. Failures after the turn has started are
// reported as a single error event; the returned error is non-nil only when
// the client stream itself is gone.
func (s *ChatService) Handle(ctx context.Context, req *ChatRequest, sink EventSink) error {
	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		reqCtx = observability.NewRequestContextWithID(slog.Default(), req.RequestID, req.AgentID, 0)
	}

	start := time.Now()
	err := s.turn(ctx, req, sink, reqCtx)
	observability.GlobalMetrics().RecordTurn(reqCtx.AgentType, time.Since(start), err != nil)
	if err == nil {
		return nil
	}

	reqCtx.Error("chat turn failed", err)
	if errors.Is(err, ErrStreamClosed) {
		return err
	}
	if sendErr := sink.Send(EventError, ErrorPayload{Message: err.Error()}); sendErr != nil {
		return sendErr
	}
	return nil
}

func (s *ChatService) turn(ctx context.Context, req *ChatRequest, sink EventSink, reqCtx *observability.RequestContext) error {
	sessionID, err := s.ensureSession(ctx, req, sink)
	if err != nil {
		return err
	}
	reqCtx.SessionID = sessionID

	anchorID, err := s.anchor(ctx, req, sessionID, sink)
	if err != nil {
		return err
	}

	history, err := s.history(ctx, req, sessionID, anchorID)
	if err != nil {
		return err
	}

	rc := &agent.RunContext{
		History:     history,
		CurrentCode: req.Context.CurrentCode,
		Model:       req.ModelConfig,
	}
	translator := NewTranslator(s.store, sink, reqCtx, sessionID, anchorID)
	outcome, err := s.graph.Run(ctx, rc, req.AgentID, translator.Handle)
	if err != nil {
		return err
	}

	msg, err := translator.Complete(ctx)
	if err != nil {
		return err
	}
	attrs := []slog.Attr{
		slog.String("route_method", outcome.Route.Method),
		slog.Int("steps", len(translator.Steps())),
	}
	if msg != nil {
		attrs = append(attrs, slog.Int64("assistant_message_id", msg.ID))
	}
	reqCtx.Info("chat turn completed", attrs...)
	return nil
}

// ensureSession returns the turn's session, creating one when the request
// has none.
func (s *ChatService) ensureSession(ctx context.Context, req *ChatRequest, sink EventSink) (int64, error) {
	if req.SessionID != nil {
		session, err := s.store.GetChatSession(ctx, *req.SessionID)
		if err != nil {
			return 0, err
		}
		return session.ID, nil
	}

	session, err := s.store.CreateChatSession(ctx, sessionTitle(req.Prompt))
	if err != nil {
		return 0, errors.Wrap(err, "failed to create session")
	}
	if err := sink.Send(EventSessionCreated, SessionCreatedPayload{SessionID: session.ID}); err != nil {
		return 0, err
	}
	return session.ID, nil
}

// anchor returns the user message the assistant reply hangs off. A retry
// reuses parent_id, which must belong to the session; any other turn
// appends a new user message.
func (s *ChatService) anchor(ctx context.Context, req *ChatRequest, sessionID int64, sink EventSink) (int64, error) {
	var anchorID int64
	if req.Retry() {
		parent, err := s.store.GetChatMessage(ctx, sessionID, *req.ParentID)
		if err != nil {
			return 0, err
		}
		anchorID = parent.ID
	} else {
		msg, err := s.store.CreateChatMessage(ctx, &store.ChatMessage{
			SessionID: sessionID,
			ParentID:  req.ParentID,
			Role:      store.MessageRoleUser,
			Content:   req.Prompt,
			Images:    req.Images,
		})
		if err != nil {
			return 0, errors.Wrap(err, "failed to persist user message")
		}
		anchorID = msg.ID
	}
	if err := sink.Send(EventMessageCreated, MessageCreatedPayload{ID: anchorID, Role: string(store.MessageRoleUser)}); err != nil {
		return 0, err
	}
	return anchorID, nil
}

// history loads the turn's history. A non-empty client history replaces the
// stored log; a retry sees the log only up to its anchor.
func (s *ChatService) history(ctx context.Context, req *ChatRequest, sessionID, anchorID int64) ([]ai.Message, error) {
	if len(req.History) > 0 {
		return BuildHistory(req.History, req.Prompt, req.Images), nil
	}
	log, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load message log")
	}
	prompt, images := req.Prompt, req.Images
	if req.Retry() {
		log = truncateAt(log, anchorID)
		// A bare retry regenerates from the anchor's own text.
		if last := len(log) - 1; strings.TrimSpace(prompt) == "" && last >= 0 && log[last].ID == anchorID {
			prompt, images = log[last].Content, log[last].Images
		}
	}
	return BuildHistory(fromLog(log), prompt, images), nil
}

func sessionTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultTitle
	}
	runes := []rune(prompt)
	if len(runes) > sessionTitleRunes {
		runes = runes[:sessionTitleRunes]
	}
	return string(runes)
}
