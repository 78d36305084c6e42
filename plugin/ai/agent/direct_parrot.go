package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// DirectParrot streams the artifact from a single generation call.
// DirectParrot 通过单次生成调用流式输出产物。
type DirectParrot struct {
	spec *StrategySpec
	llm  ai.LLMService
	now  func() time.Time
}

// NewDirectParrot creates a direct-mode strategy.
// NewDirectParrot 创建直接模式策略。
func NewDirectParrot(spec *StrategySpec, llm ai.LLMService) (*DirectParrot, error) {
	if llm == nil {
		return nil, errors.New("llm cannot be nil")
	}
	if spec == nil {
		return nil, errors.New("spec cannot be nil")
	}
	return &DirectParrot{spec: spec, llm: llm, now: time.Now}, nil
}

// Name returns the strategy identifier.
func (p *DirectParrot) Name() AgentType {
	return p.spec.Type
}

// Run streams one turn.
func (p *DirectParrot) Run(ctx context.Context, rc *RunContext, emit EventHandler) (*Result, error) {
	node := AgentNode(p.spec.Type)
	history := prepare(p.spec, rc)

	slog.Debug("DirectParrot: run started",
		"agent", p.spec.Type,
		"history_count", len(history),
		"has_current_artifact", rc.CurrentArtifact != "",
	)

	messages := append([]ai.Message{
		ai.SystemPrompt(BuildSystemPrompt(p.spec, rc.CurrentArtifact, false, p.now())),
	}, history...)

	stream, err := p.llm.ChatStream(ctx, &ai.ChatRequest{Messages: messages, Model: rc.Model})
	if err != nil {
		return nil, NewParrotError(string(p.spec.Type), "ChatStream", err)
	}

	resp, err := ai.Drain(stream, func(d *ai.Delta) error {
		if d.Content == "" {
			return nil
		}
		return emit(Event{Node: node, Kind: EventModelToken, Content: d.Content})
	})
	if err != nil {
		return nil, NewParrotError(string(p.spec.Type), "stream", err)
	}

	result := &Result{Agent: p.spec.Type, Narration: resp.Content}
	if p.spec.Type != AgentGeneral {
		result.Artifact = ExtractArtifact(resp.Content, p.spec.Format)
	}

	slog.Debug("DirectParrot: run finished",
		"agent", p.spec.Type,
		"output", truncateString(resp.Content, 100),
	)
	return result, nil
}
