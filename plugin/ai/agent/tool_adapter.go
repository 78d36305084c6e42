package agent

import (
	"context"
	"time"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// Descriptor converts a tool into the schema handed to the LLM.
func Descriptor(t Tool) ai.ToolDescriptor {
	return ai.ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// NewGenerationTool returns the artifact generator bound to a tool-mode
// strategy. It runs its own streaming call with the strategy's instruction
// set and returns the cleaned artifact. Tokens are reported on the
// strategy's tools node.
func NewGenerationTool(spec *StrategySpec, llm ai.LLMService) *BaseTool {
	node := ToolsNode(spec.Type)
	return NewBaseTool(
		spec.ToolName,
		"Generate "+spec.Noun+" from a complete, self-contained instruction.",
		func(ctx context.Context, rc *RunContext, input string, emit EventHandler) (string, error) {
			messages := ai.FormatMessages(
				BuildSystemPrompt(spec, rc.CurrentArtifact, true, time.Now()),
				ParseInstruction(input),
				nil,
			)

			stream, err := llm.ChatStream(ctx, &ai.ChatRequest{Messages: messages, Model: rc.Model})
			if err != nil {
				return "", err
			}
			resp, err := ai.Drain(stream, func(d *ai.Delta) error {
				if d.Content == "" {
					return nil
				}
				return emit(Event{Node: node, Kind: EventModelToken, Content: d.Content})
			})
			if err != nil {
				return "", err
			}
			return ExtractArtifact(resp.Content, spec.Format), nil
		},
		WithParameters(InstructionSchema("Complete description of "+spec.Noun+", including any changes to the current version.")),
	)
}
