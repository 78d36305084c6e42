package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// ToolParrot is a persona that narrates and delegates generation to one
// bound tool. Only the first tool call of the persona is executed. When the
// persona makes no call, the tool runs on the latest user text.
// ToolParrot 是一个委托单个工具生成产物的角色。
type ToolParrot struct {
	spec *StrategySpec
	llm  ai.LLMService
	tool Tool
	now  func() time.Time
}

// NewToolParrot creates a tool-mediated strategy bound to tool.
func NewToolParrot(spec *StrategySpec, llm ai.LLMService, tool Tool) (*ToolParrot, error) {
	if llm == nil {
		return nil, errors.New("llm cannot be nil")
	}
	if spec == nil || tool == nil {
		return nil, errors.New("spec and tool are required")
	}
	return &ToolParrot{spec: spec, llm: llm, tool: tool, now: time.Now}, nil
}

// Name returns the strategy identifier.
func (p *ToolParrot) Name() AgentType {
	return p.spec.Type
}

// Run streams one turn: the persona call, then exactly one tool execution.
func (p *ToolParrot) Run(ctx context.Context, rc *RunContext, emit EventHandler) (*Result, error) {
	agentNode, toolsNode := AgentNode(p.spec.Type), ToolsNode(p.spec.Type)
	history := prepare(p.spec, rc)

	system := personaInstructions(p.spec) + timeInstructions(p.now())
	if rc.CurrentArtifact != "" {
		system += "\n\nThe canvas already holds " + p.spec.Noun + ". Describe the requested changes relative to it; the tool sees the current version."
	}
	messages := append([]ai.Message{ai.SystemPrompt(system)}, history...)

	stream, err := p.llm.ChatStream(ctx, &ai.ChatRequest{
		Messages: messages,
		Tools:    []ai.ToolDescriptor{Descriptor(p.tool)},
		Model:    rc.Model,
	})
	if err != nil {
		return nil, NewParrotError(string(p.spec.Type), "ChatStream", err)
	}

	resp, err := ai.Drain(stream, func(d *ai.Delta) error {
		if d.Content != "" {
			if err := emit(Event{Node: agentNode, Kind: EventModelToken, Content: d.Content}); err != nil {
				return err
			}
		}
		for _, tc := range d.ToolCalls {
			if tc.Arguments == "" {
				continue
			}
			if err := emit(Event{Node: agentNode, Kind: EventModelToken, ToolArgs: tc.Arguments}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewParrotError(string(p.spec.Type), "stream", err)
	}

	call := p.selectCall(resp, rc)
	if len(resp.ToolCalls) > 1 {
		slog.Warn("ToolParrot: extra tool calls ignored",
			"agent", p.spec.Type,
			"count", len(resp.ToolCalls),
		)
	}

	if err := emit(Event{
		Node:  toolsNode,
		Kind:  EventToolStart,
		Name:  call.Name,
		Input: ParseToolInput(call.Arguments),
	}); err != nil {
		return nil, err
	}

	start := time.Now()
	output, err := p.tool.Run(ctx, rc, call.Arguments, emit)
	run := NewToolResult(call.Name, call.Arguments, output, time.Since(start), err)
	slog.Info("ToolParrot: tool finished",
		"agent", p.spec.Type,
		"tool", run.Name,
		"success", run.Success,
		"duration_ms", run.Duration.Milliseconds(),
	)
	if err != nil {
		return nil, NewParrotError(string(p.spec.Type), "tool "+call.Name, err)
	}

	if err := emit(Event{Node: toolsNode, Kind: EventToolEnd, Name: call.Name, Output: output}); err != nil {
		return nil, err
	}

	return &Result{
		Agent:     p.spec.Type,
		Narration: resp.Content,
		Artifact:  output,
		ToolCalls: []ai.ToolCall{call},
	}, nil
}

// selectCall picks the call to execute, synthesizing one from the latest
// user text when the persona made none.
func (p *ToolParrot) selectCall(resp *ai.Response, rc *RunContext) ai.ToolCall {
	var call ai.ToolCall
	if len(resp.ToolCalls) > 0 {
		call = resp.ToolCalls[0]
	}
	call.Name = p.tool.Name()
	if call.ID == "" {
		call.ID = "call_" + shortuuid.New()
	}
	if strings.TrimSpace(ParseInstruction(call.Arguments)) == "" {
		instruction := rc.LatestUserText()
		if strings.TrimSpace(instruction) == "" {
			instruction = p.spec.Placeholder
		}
		call.Arguments = InstructionArgs(instruction)
	}
	return call
}
