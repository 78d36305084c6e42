package agent

import (
	"strings"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// Sniffer reports whether a text blob is an artifact of one strategy.
// Sniffers are pure functions of the text.
type Sniffer func(text string) bool

var mermaidPrefixes = []string{
	"graph",
	"sequenceDiagram",
	"gantt",
	"classDiagram",
	"stateDiagram",
	"pie",
	"erDiagram",
	"flowchart",
}

// SniffCharts matches ECharts option JSON.
func SniffCharts(text string) bool {
	t := strings.TrimSpace(text)
	return strings.Contains(t, `"series":`) || strings.Contains(t, `"xAxis":`)
}

// SniffDrawio matches draw.io XML.
func SniffDrawio(text string) bool {
	t := strings.TrimSpace(text)
	return strings.Contains(t, "<mxfile") || strings.Contains(t, "<mxGraphModel")
}

// SniffFlow matches React Flow graph JSON.
func SniffFlow(text string) bool {
	t := strings.TrimSpace(text)
	return strings.Contains(t, `"nodes":`) && strings.Contains(t, `"edges":`)
}

// SniffMermaid matches Mermaid source.
func SniffMermaid(text string) bool {
	t := strings.TrimSpace(text)
	for _, prefix := range mermaidPrefixes {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// SniffInfographic matches AntV infographic DSL.
func SniffInfographic(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "infographic ")
}

// SniffMindmap matches Markmap markdown.
func SniffMindmap(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "#")
}

// sniffOrder doubles as the tie-break order when a blob matches more than
// one signature.
var sniffOrder = []struct {
	agent AgentType
	sniff Sniffer
}{
	{AgentCharts, SniffCharts},
	{AgentDrawio, SniffDrawio},
	{AgentFlow, SniffFlow},
	{AgentMermaid, SniffMermaid},
	{AgentInfographic, SniffInfographic},
	{AgentMindmap, SniffMindmap},
}

// SnifferFor returns the sniffer of a strategy, or nil for general.
func SnifferFor(t AgentType) Sniffer {
	for _, s := range sniffOrder {
		if s.agent == t {
			return s.sniff
		}
	}
	return nil
}

// DetectArtifactType returns the first strategy whose signature matches.
func DetectArtifactType(text string) (AgentType, bool) {
	for _, s := range sniffOrder {
		if s.sniff(text) {
			return s.agent, true
		}
	}
	return "", false
}

// FindCurrentArtifact scans history from newest to oldest and returns the
// first artifact the sniffer accepts. Tool messages are tested as-is;
// assistant messages are tested on their tool outputs first, then on the
// artifact extracted from their text. User messages are never considered.
// fallback is tested last.
func FindCurrentArtifact(history []ai.Message, sniff Sniffer, format ArtifactFormat, fallback string) string {
	if sniff == nil {
		return ""
	}

	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		switch msg.Role {
		case ai.RoleTool:
			if msg.Content != "" && sniff(msg.Content) {
				return strings.TrimSpace(msg.Content)
			}
		case ai.RoleAssistant:
			for j := len(msg.ToolOutputs) - 1; j >= 0; j-- {
				if out := msg.ToolOutputs[j]; out != "" && sniff(out) {
					return strings.TrimSpace(out)
				}
			}
			if msg.Content == "" {
				continue
			}
			if candidate := ExtractArtifact(msg.Content, format); candidate != "" && sniff(candidate) {
				return candidate
			}
		}
	}

	if fallback != "" && sniff(fallback) {
		return strings.TrimSpace(fallback)
	}
	return ""
}
