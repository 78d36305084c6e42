package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

func specFor(t *testing.T, specs []*StrategySpec, at AgentType) *StrategySpec {
	t.Helper()
	for _, s := range specs {
		if s.Type == at {
			return s
		}
	}
	t.Fatalf("no spec for %s", at)
	return nil
}

func TestDefaultSpecs(t *testing.T) {
	specs := DefaultSpecs()
	require.Len(t, specs, len(AllAgentTypes))

	placeholders := map[AgentType]string{
		AgentCharts:      "Generate a chart",
		AgentFlow:        "Generate a flowchart",
		AgentMermaid:     "Generate a mermaid diagram",
		AgentMindmap:     "Generate a mindmap",
		AgentDrawio:      "Generate a diagram",
		AgentInfographic: "Generate an infographic",
		AgentGeneral:     "Hello",
	}
	for at, want := range placeholders {
		assert.Equal(t, want, specFor(t, specs, at).Placeholder, at)
	}

	assert.Equal(t, ModeTool, specFor(t, specs, AgentDrawio).Mode)
	assert.Equal(t, ModeTool, specFor(t, specs, AgentInfographic).Mode)
	assert.Equal(t, ModeDirect, specFor(t, specs, AgentCharts).Mode)
}

func TestApplyToolModes(t *testing.T) {
	specs := DefaultSpecs()
	ApplyToolModes(specs, []string{"charts", "general", "bogus"})

	assert.Equal(t, ModeTool, specFor(t, specs, AgentCharts).Mode)
	assert.Equal(t, ModeDirect, specFor(t, specs, AgentDrawio).Mode)
	assert.Equal(t, ModeDirect, specFor(t, specs, AgentGeneral).Mode)

	untouched := DefaultSpecs()
	ApplyToolModes(untouched, nil)
	assert.Equal(t, ModeTool, specFor(t, untouched, AgentDrawio).Mode)
}

func TestGuardEmptyContent(t *testing.T) {
	history := []ai.Message{
		ai.UserMessage(""),
		ai.AssistantMessage("  "),
		ai.UserMessage("keep me"),
	}
	guarded := GuardEmptyContent(history, "Generate a chart")

	assert.Equal(t, "Generate a chart", guarded[0].Content)
	assert.Equal(t, "Generate a chart", guarded[1].Content)
	assert.Equal(t, "keep me", guarded[2].Content)
	// The caller's slice is untouched.
	assert.Equal(t, "", history[0].Content)
}

func TestBuildSystemPrompt(t *testing.T) {
	specs := DefaultSpecs()
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	t.Run("direct with current artifact", func(t *testing.T) {
		prompt := BuildSystemPrompt(specFor(t, specs, AgentFlow), `{"nodes":[],"edges":[]}`, false, now)
		assert.Contains(t, prompt, "<design_concept>")
		assert.Contains(t, prompt, "CURRENT FLOWCHART CODE (JSON)")
		assert.Contains(t, prompt, "```json\n{\"nodes\":[],\"edges\":[]}\n```")
		assert.Contains(t, prompt, "2026-03-04")
	})

	t.Run("raw output", func(t *testing.T) {
		prompt := BuildSystemPrompt(specFor(t, specs, AgentDrawio), "", true, now)
		assert.NotContains(t, prompt, "<design_concept>")
		assert.Contains(t, prompt, "Output only the draw.io XML")
		assert.NotContains(t, prompt, "CURRENT DIAGRAM CODE")
	})

	t.Run("general has no output contract", func(t *testing.T) {
		prompt := BuildSystemPrompt(specFor(t, specs, AgentGeneral), "", false, now)
		assert.False(t, strings.Contains(prompt, "<code>"))
	})

	t.Run("infographic carries template catalog", func(t *testing.T) {
		prompt := BuildSystemPrompt(specFor(t, specs, AgentInfographic), "", true, now)
		assert.Contains(t, prompt, "list-grid-badge-card")
	})
}

func TestInfographicDataField(t *testing.T) {
	assert.Equal(t, "sequences", InfographicDataField("sequence-timeline-simple"))
	assert.Equal(t, "items", InfographicDataField("hierarchy-structure"))
	assert.Equal(t, "root", InfographicDataField("hierarchy-tree-tech-style-badge-card"))
	assert.Equal(t, "items", InfographicDataField("unknown-template"))
}
