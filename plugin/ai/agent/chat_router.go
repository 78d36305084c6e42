package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// Route methods.
const (
	RouteMethodExplicit = "explicit"
	RouteMethodLLM      = "llm"
	RouteMethodFallback = "fallback"
)

// ChatRouteResult represents the routing classification result.
type ChatRouteResult struct {
	Route  AgentType `json:"route"`
	Method string    `json:"method"` // "explicit", "llm" or "fallback"
}

// ChatRouterConfig holds configuration for the chat router.
type ChatRouterConfig struct {
	// Model is the classification model; empty uses the service default.
	Model string
}

// ChatRouter picks the strategy for a turn with one short classification
// call. Any failure or unrecognised answer routes to general.
type ChatRouter struct {
	llm   ai.LLMService
	model string
}

// NewChatRouter creates a new chat router.
func NewChatRouter(llm ai.LLMService, cfg ChatRouterConfig) *ChatRouter {
	return &ChatRouter{llm: llm, model: cfg.Model}
}

// Route determines the strategy for the turn. A valid pinned agent id skips
// classification.
func (r *ChatRouter) Route(ctx context.Context, rc *RunContext, pinned string) *ChatRouteResult {
	if pinned != "" {
		if t, ok := ParseAgentType(pinned); ok {
			return &ChatRouteResult{Route: t, Method: RouteMethodExplicit}
		}
		if t := mapRoute(pinned); t != AgentGeneral {
			return &ChatRouteResult{Route: t, Method: RouteMethodExplicit}
		}
		slog.Debug("chat router ignoring unknown agent id", "agent_id", pinned)
	}

	start := time.Now()
	temperature := float32(0)
	answer, err := r.llm.Chat(ctx, &ai.ChatRequest{
		Messages:    r.buildMessages(rc),
		Model:       r.modelFor(rc.Model),
		MaxTokens:   30,
		Temperature: &temperature,
	})
	if err != nil {
		slog.Warn("LLM routing failed, defaulting to general",
			"error", err,
			"latency_ms", time.Since(start).Milliseconds())
		return &ChatRouteResult{Route: AgentGeneral, Method: RouteMethodFallback}
	}

	route := mapRoute(answer)
	slog.Debug("chat routed by LLM",
		"answer", truncateString(answer, 30),
		"route", route,
		"latency_ms", time.Since(start).Milliseconds())
	return &ChatRouteResult{Route: route, Method: RouteMethodLLM}
}

// buildMessages passes the full ordered text history. Tool traffic and
// images are irrelevant to classification. The canvas artifact sent by the
// client is tagged with the agent whose signature it carries.
func (r *ChatRouter) buildMessages(rc *RunContext) []ai.Message {
	system := routerSystemPrompt
	if canvas, ok := DetectArtifactType(rc.CurrentCode); ok {
		system += "\n\nThe canvas currently shows output of the " + string(canvas) + " agent."
	}

	turns := make([]ai.Message, 0, len(rc.History)+1)
	turns = append(turns, ai.SystemPrompt(system))
	for _, msg := range rc.History {
		if msg.Role != ai.RoleUser && msg.Role != ai.RoleAssistant {
			continue
		}
		content := msg.Content
		if strings.TrimSpace(content) == "" {
			content = "(empty)"
		}
		turns = append(turns, ai.Message{Role: msg.Role, Content: content})
	}
	return turns
}

// modelFor prefers the per-request override, then the router model.
func (r *ChatRouter) modelFor(override *ai.ModelConfig) *ai.ModelConfig {
	if !override.IsEmpty() {
		return override
	}
	if r.model == "" {
		return nil
	}
	return &ai.ModelConfig{Model: r.model}
}

// mapRoute converts the classifier answer to an agent type.
func mapRoute(s string) AgentType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`.!,:;*() \n\t")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.Trim(s, "\"'`.!,:;*()")
	s = strings.TrimSuffix(s, "_agent")

	switch s {
	case "flowchart":
		return AgentFlow
	case "chart", "echarts":
		return AgentCharts
	case "mind_map", "mind-map":
		return AgentMindmap
	case "draw.io":
		return AgentDrawio
	}
	if t, ok := ParseAgentType(s); ok {
		return t
	}
	return AgentGeneral
}
