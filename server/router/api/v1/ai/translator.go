package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai/agent"
	"github.com/hrygo/divinecanvas/server/internal/observability"
	"github.com/hrygo/divinecanvas/store"
)

// MessageStore is the persistence the translator needs.
type MessageStore interface {
	CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error)
}

// Translator turns internal graph events into client events for one turn,
// accumulating the narration and step list of the assistant message.
// Translator 将图内部事件转换为客户端事件。
type Translator struct {
	store     MessageStore
	sink      EventSink
	logger    *observability.RequestContext
	sessionID int64
	anchorID  int64
	now       func() time.Time

	agent     agent.AgentType
	narration strings.Builder
	steps     []*store.Step
}

// NewTranslator creates a translator for one turn anchored at anchorID.
func NewTranslator(s MessageStore, sink EventSink, logger *observability.RequestContext, sessionID, anchorID int64) *Translator {
	return &Translator{
		store:     s,
		sink:      sink,
		logger:    logger,
		sessionID: sessionID,
		anchorID:  anchorID,
		now:       time.Now,
	}
}

// Handle processes one internal event. It is the graph's emit callback.
func (t *Translator) Handle(ev agent.Event) error {
	if ev.Node == agent.NodeRouter {
		if ev.Kind != agent.EventChainEnd {
			return nil
		}
		selected, _ := ev.Output.(agent.AgentType)
		t.agent = selected
		t.logger.AgentType = string(selected)
		t.appendStep(&store.Step{Type: store.StepAgentSelect, Name: string(selected), Status: store.StepDone})
		return t.sink.Send(EventAgentSelected, AgentSelectedPayload{Agent: string(selected)})
	}

	switch ev.Kind {
	case agent.EventModelToken:
		return t.handleToken(ev)
	case agent.EventToolStart:
		t.appendStep(&store.Step{
			Type:    store.StepToolStart,
			Name:    ev.Name,
			Content: stringify(ev.Input),
			Status:  store.StepRunning,
		})
		return t.sink.Send(EventToolStart, ToolStartPayload{Tool: ev.Name, Input: ev.Input})
	case agent.EventToolEnd:
		output := stringify(ev.Output)
		t.appendStep(&store.Step{Type: store.StepToolEnd, Name: "Result", Content: output, Status: store.StepDone})
		t.closeRunning()
		return t.sink.Send(EventToolEnd, ToolEndPayload{Output: output})
	}
	// Strategy chain events carry nothing for the client.
	return nil
}

func (t *Translator) handleToken(ev agent.Event) error {
	if ev.Content != "" {
		if agent.IsToolsNode(ev.Node) {
			if err := t.sink.Send(EventToolCode, ContentPayload{Content: ev.Content}); err != nil {
				return err
			}
		} else {
			t.narration.WriteString(ev.Content)
			if err := t.sink.Send(EventThought, ContentPayload{Content: ev.Content}); err != nil {
				return err
			}
		}
	}
	if ev.ToolArgs != "" {
		return t.sink.Send(EventToolArgsStream, ToolArgsPayload{Args: ev.ToolArgs})
	}
	return nil
}

func (t *Translator) appendStep(step *store.Step) {
	step.Timestamp = t.now().UnixMilli()
	t.steps = append(t.steps, step)
}

// closeRunning marks the most recently opened running step done.
func (t *Translator) closeRunning() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		if t.steps[i].Status == store.StepRunning {
			t.steps[i].Status = store.StepDone
			return
		}
	}
	slog.Warn("tool_end without a running step", slog.Int64("session_id", t.sessionID))
}

// Steps returns the accumulated step list.
func (t *Translator) Steps() []*store.Step {
	return t.steps
}

// Narration returns the accumulated narration text.
func (t *Translator) Narration() string {
	return t.narration.String()
}

// Complete persists the assistant message when the turn produced narration
// or steps, then announces it. It returns nil without persisting otherwise.
func (t *Translator) Complete(ctx context.Context) (*store.ChatMessage, error) {
	if t.narration.Len() == 0 && len(t.steps) == 0 {
		return nil, nil
	}

	anchor := t.anchorID
	msg, err := t.store.CreateChatMessage(ctx, &store.ChatMessage{
		SessionID: t.sessionID,
		ParentID:  &anchor,
		Role:      store.MessageRoleAssistant,
		Content:   t.narration.String(),
		Steps:     t.steps,
		Agent:     string(t.agent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist assistant message")
	}
	if err := t.sink.Send(EventMessageCreated, MessageCreatedPayload{ID: msg.ID, Role: string(store.MessageRoleAssistant)}); err != nil {
		return msg, err
	}
	return msg, nil
}

// stringify returns strings as is and JSON-encodes anything else.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
