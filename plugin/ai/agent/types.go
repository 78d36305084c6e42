package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// AgentType identifies one generation strategy.
// AgentType 标识一种生成策略。
type AgentType string

const (
	AgentMindmap     AgentType = "mindmap"
	AgentFlow        AgentType = "flow"
	AgentMermaid     AgentType = "mermaid"
	AgentCharts      AgentType = "charts"
	AgentDrawio      AgentType = "drawio"
	AgentInfographic AgentType = "infographic"
	AgentGeneral     AgentType = "general"
)

// AllAgentTypes is the closed set of strategies, in routing prompt order.
var AllAgentTypes = []AgentType{
	AgentMindmap,
	AgentFlow,
	AgentMermaid,
	AgentCharts,
	AgentDrawio,
	AgentInfographic,
	AgentGeneral,
}

// ParseAgentType reports whether s names a member of the closed set.
func ParseAgentType(s string) (AgentType, bool) {
	t := AgentType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllAgentTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// EventKind is the kind of an internal orchestration event.
type EventKind string

const (
	EventChainStart EventKind = "chain_start"
	EventChainEnd   EventKind = "chain_end"
	EventModelToken EventKind = "model_token"
	EventToolStart  EventKind = "tool_start"
	EventToolEnd    EventKind = "tool_end"
)

// NodeRouter is the node id of the routing step.
const NodeRouter = "router"

// AgentNode returns the node id for a strategy's own generation call.
func AgentNode(t AgentType) string {
	return string(t) + "_agent"
}

// ToolsNode returns the node id for a strategy's tool execution.
func ToolsNode(t AgentType) string {
	return string(t) + "_tools"
}

// IsToolsNode reports whether a node id represents tool execution.
func IsToolsNode(node string) bool {
	return strings.HasSuffix(node, "_tools")
}

// Event is one internal progress event, tagged with its originating node.
// Event 是一个内部进度事件，带有其来源节点。
type Event struct {
	Node string
	Kind EventKind
	// Name is the chain or tool name.
	Name string
	// Content is a streamed text fragment (model_token).
	Content string
	// ToolArgs is a streamed tool-call argument fragment (model_token).
	ToolArgs string
	Input    any
	Output   any
}

// EventHandler receives events in the order they happen.
// Returning an error aborts the run.
// 返回错误将中止执行。
type EventHandler func(Event) error

// RunContext is the explicit per-turn context handed from the graph to a
// strategy and from a strategy to its tool.
type RunContext struct {
	// History is the assembled conversation, current input last.
	History []ai.Message
	// CurrentCode is the artifact the client says is on its canvas.
	CurrentCode string
	// Model overrides the default model for this turn.
	Model *ai.ModelConfig

	// CurrentArtifact is filled by the strategy before generation.
	CurrentArtifact string
}

// LatestUserText returns the text of the most recent user message.
func (rc *RunContext) LatestUserText() string {
	for i := len(rc.History) - 1; i >= 0; i-- {
		if rc.History[i].Role == ai.RoleUser {
			return rc.History[i].Content
		}
	}
	return ""
}

// Result is what a strategy produced in one turn.
type Result struct {
	Agent AgentType
	// Narration is the text streamed from the strategy's own call.
	Narration string
	// Artifact is the cleaned artifact, when one could be identified.
	Artifact  string
	ToolCalls []ai.ToolCall
}

// Strategy generates one artifact type.
// Strategy 生成一种产物类型。
type Strategy interface {
	// Name returns the strategy identifier.
	Name() AgentType

	// Run streams one turn. Events are delivered to emit as they happen.
	Run(ctx context.Context, rc *RunContext, emit EventHandler) (*Result, error)
}

// ParrotError represents an error from a strategy.
// ParrotError 表示来自策略的错误。
type ParrotError struct {
	AgentName string // Name of the agent that produced the error
	Operation string // Operation being performed when error occurred
	Err       error  // Underlying error
}

// Error implements the error interface.
// Error 实现错误接口。
func (e *ParrotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("parrot %s: %s failed: %v", e.AgentName, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
// Unwrap 返回底层错误。
func (e *ParrotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewParrotError creates a new ParrotError.
// NewParrotError 创建一个新的 ParrotError。
func NewParrotError(agentName, operation string, err error) *ParrotError {
	return &ParrotError{
		AgentName: agentName,
		Operation: operation,
		Err:       err,
	}
}

// Compile-time interface compliance checks.
// 编译时接口合规性检查。
var (
	_ Strategy = (*DirectParrot)(nil)
	_ Strategy = (*ToolParrot)(nil)
)
