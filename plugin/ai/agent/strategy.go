package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// Mode selects how a strategy produces its artifact.
type Mode int

const (
	// ModeDirect streams the artifact from one generation call.
	ModeDirect Mode = iota
	// ModeTool has a persona call delegate generation to one bound tool.
	ModeTool
)

func (m Mode) String() string {
	if m == ModeTool {
		return "tool"
	}
	return "direct"
}

// StrategySpec is the static description of one strategy.
type StrategySpec struct {
	Type AgentType
	Mode Mode
	// Noun names the artifact in prompts.
	Noun         string
	Instructions string
	// Placeholder replaces empty message content.
	Placeholder string
	Format      ArtifactFormat
	// CodeHint describes what belongs in the output.
	CodeHint string
	// Heading and FenceLang frame the current artifact in the prompt.
	Heading   string
	FenceLang string
	ToolName  string
}

// Sniffer returns the current-artifact predicate of the strategy.
func (s *StrategySpec) Sniffer() Sniffer {
	return SnifferFor(s.Type)
}

// DefaultSpecs returns the seven strategies with their default modes.
func DefaultSpecs() []*StrategySpec {
	return []*StrategySpec{
		{
			Type:         AgentMindmap,
			Noun:         "a Markmap mind map",
			Instructions: mindmapInstructions,
			Placeholder:  "Generate a mindmap",
			Format:       FormatText,
			CodeHint:     "The Markdown mind map (raw markdown, no fences)",
			Heading:      "CURRENT MINDMAP CODE (Markdown)",
			FenceLang:    "markdown",
			ToolName:     "generate_mindmap",
		},
		{
			Type:         AgentFlow,
			Noun:         "a React Flow flowchart",
			Instructions: flowInstructions,
			Placeholder:  "Generate a flowchart",
			Format:       FormatJSON,
			CodeHint:     `The flowchart JSON object with "nodes" and "edges"`,
			Heading:      "CURRENT FLOWCHART CODE (JSON)",
			FenceLang:    "json",
			ToolName:     "generate_flowchart",
		},
		{
			Type:         AgentMermaid,
			Noun:         "a Mermaid diagram",
			Instructions: mermaidInstructions,
			Placeholder:  "Generate a mermaid diagram",
			Format:       FormatText,
			CodeHint:     "The Mermaid source (raw, no fences)",
			Heading:      "CURRENT DIAGRAM CODE",
			FenceLang:    "mermaid",
			ToolName:     "generate_mermaid",
		},
		{
			Type:         AgentCharts,
			Noun:         "an ECharts chart",
			Instructions: chartsInstructions,
			Placeholder:  "Generate a chart",
			Format:       FormatJSON,
			CodeHint:     "The ECharts option as one valid JSON object",
			Heading:      "CURRENT CHART CODE",
			FenceLang:    "json",
			ToolName:     "generate_chart",
		},
		{
			Type:         AgentDrawio,
			Mode:         ModeTool,
			Noun:         "a draw.io architecture diagram",
			Instructions: drawioInstructions,
			Placeholder:  "Generate a diagram",
			Format:       FormatXML,
			CodeHint:     "The draw.io XML document starting with <mxfile>",
			Heading:      "CURRENT DIAGRAM CODE",
			FenceLang:    "xml",
			ToolName:     "generate_drawio",
		},
		{
			Type:         AgentInfographic,
			Mode:         ModeTool,
			Noun:         "an AntV infographic",
			Instructions: infographicInstructions + infographicCatalog(),
			Placeholder:  "Generate an infographic",
			Format:       FormatText,
			CodeHint:     "The infographic DSL starting with \"infographic <template-name>\"",
			Heading:      "CURRENT INFOGRAPHIC CODE",
			FenceLang:    "",
			ToolName:     "generate_infographic",
		},
		{
			Type:         AgentGeneral,
			Noun:         "an answer",
			Instructions: generalInstructions,
			Placeholder:  "Hello",
			Format:       FormatText,
		},
	}
}

// ApplyToolModes sets each artifact strategy to tool mode when it is listed
// and to direct mode otherwise. General always runs direct.
// A nil list keeps the defaults.
func ApplyToolModes(specs []*StrategySpec, toolAgents []string) {
	if toolAgents == nil {
		return
	}
	listed := make(map[AgentType]bool, len(toolAgents))
	for _, name := range toolAgents {
		if t, ok := ParseAgentType(name); ok {
			listed[t] = true
		}
	}
	for _, spec := range specs {
		if spec.Type == AgentGeneral {
			spec.Mode = ModeDirect
			continue
		}
		if listed[spec.Type] {
			spec.Mode = ModeTool
		} else {
			spec.Mode = ModeDirect
		}
	}
}

// GuardEmptyContent returns a copy of history where every message with
// blank content carries placeholder instead. The input is not modified.
func GuardEmptyContent(history []ai.Message, placeholder string) []ai.Message {
	out := make([]ai.Message, len(history))
	copy(out, history)
	for i := range out {
		if strings.TrimSpace(out[i].Content) == "" {
			out[i].Content = placeholder
		}
	}
	return out
}

// BuildSystemPrompt assembles the instruction set of a generation call.
// raw asks for the bare artifact instead of the tagged output contract.
func BuildSystemPrompt(spec *StrategySpec, current string, raw bool, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(spec.Instructions)

	if spec.Type != AgentGeneral {
		if raw {
			fmt.Fprintf(&sb, "\n\n### OUTPUT FORMAT\nOutput only %s. No explanations, no code fences.", lowerFirst(spec.CodeHint))
		} else {
			fmt.Fprintf(&sb, outputTags, spec.CodeHint)
		}
	}

	sb.WriteString(thinkingInstructions)
	sb.WriteString(timeInstructions(now))

	if current != "" {
		fmt.Fprintf(&sb, "\n\n### %s\n```%s\n%s\n```\nApply the user's request to this artifact instead of starting over.", spec.Heading, spec.FenceLang, current)
	}
	return sb.String()
}

// prepare resolves the current artifact into rc and returns the guarded
// history to send.
func prepare(spec *StrategySpec, rc *RunContext) []ai.Message {
	rc.CurrentArtifact = FindCurrentArtifact(rc.History, spec.Sniffer(), spec.Format, rc.CurrentCode)
	return GuardEmptyContent(rc.History, spec.Placeholder)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
