package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

type recorder struct {
	events []Event
}

func (r *recorder) emit(e Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Node+":"+string(e.Kind))
	}
	return out
}

func TestDirectParrotStreamsAndExtracts(t *testing.T) {
	llm := ai.NewMockLLMService(ai.TextScript(
		"<design_concept>Quarterly bars.</design_concept>\n<code>\n",
		`{"series":[{"type":"bar","data":[1,2,3,4]}]}`,
		"\n</code>",
	))
	spec := specFor(t, DefaultSpecs(), AgentCharts)
	parrot, err := NewDirectParrot(spec, llm)
	require.NoError(t, err)

	rec := &recorder{}
	rc := &RunContext{History: []ai.Message{ai.UserMessage("draw quarterly revenue")}}
	result, err := parrot.Run(context.Background(), rc, rec.emit)
	require.NoError(t, err)

	require.Len(t, rec.events, 3)
	var streamed strings.Builder
	for _, e := range rec.events {
		assert.Equal(t, "charts_agent", e.Node)
		assert.Equal(t, EventModelToken, e.Kind)
		streamed.WriteString(e.Content)
	}
	assert.Contains(t, streamed.String(), `"series":`)
	assert.Equal(t, `{"series":[{"type":"bar","data":[1,2,3,4]}]}`, result.Artifact)
	assert.Equal(t, AgentCharts, result.Agent)
}

func TestDirectParrotReceivesCurrentFlow(t *testing.T) {
	blob := `{"nodes":[{"id":"start"}],"edges":[]}`
	llm := ai.NewMockLLMService(ai.TextScript(`<code>{"nodes":[{"id":"start"},{"id":"timeout"}],"edges":[]}</code>`))
	parrot, err := NewDirectParrot(specFor(t, DefaultSpecs(), AgentFlow), llm)
	require.NoError(t, err)

	rc := &RunContext{History: []ai.Message{
		ai.UserMessage("draw the order process"),
		{Role: ai.RoleAssistant, Content: "Here you go"},
		{Role: ai.RoleTool, Content: blob, ToolCallID: "call_1"},
		ai.UserMessage("add a timeout branch"),
	}}
	_, err = parrot.Run(context.Background(), rc, (&recorder{}).emit)
	require.NoError(t, err)

	assert.Equal(t, blob, rc.CurrentArtifact)
	system := llm.Requests()[0].Messages[0]
	assert.Equal(t, ai.RoleSystem, system.Role)
	assert.Contains(t, system.Content, blob)
}

func TestDirectParrotGuardsEmptyContent(t *testing.T) {
	llm := ai.NewMockLLMService(ai.TextScript("# Root"))
	parrot, err := NewDirectParrot(specFor(t, DefaultSpecs(), AgentMindmap), llm)
	require.NoError(t, err)

	history := []ai.Message{ai.UserMessage("")}
	_, err = parrot.Run(context.Background(), &RunContext{History: history}, (&recorder{}).emit)
	require.NoError(t, err)

	sent := llm.Requests()[0].Messages
	assert.Equal(t, "Generate a mindmap", sent[len(sent)-1].Content)
	assert.Equal(t, "", history[0].Content)
}

func TestDirectParrotMidStreamError(t *testing.T) {
	script := ai.TextScript("one", "two")
	script.Err = errors.New("upstream reset")
	parrot, err := NewDirectParrot(specFor(t, DefaultSpecs(), AgentMermaid), ai.NewMockLLMService(script))
	require.NoError(t, err)

	rec := &recorder{}
	_, err = parrot.Run(context.Background(), &RunContext{History: []ai.Message{ai.UserMessage("x")}}, rec.emit)
	require.Error(t, err)

	var perr *ParrotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mermaid", perr.AgentName)
	assert.Len(t, rec.events, 2)
}

func TestToolParrot(t *testing.T) {
	spec := specFor(t, DefaultSpecs(), AgentDrawio)

	t.Run("persona call then one tool run", func(t *testing.T) {
		persona := ai.ToolCallScript("call_a", "generate_drawio", `{"instruc`, `tion":"three tier app"}`)
		persona.Deltas = append([]*ai.Delta{{Content: "Drawing a three tier app."}}, persona.Deltas...)
		llm := ai.NewMockLLMService(
			persona,
			ai.TextScript("<mxfile><diagram>", "</diagram></mxfile>"),
		)
		parrot, err := NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		require.NoError(t, err)

		rec := &recorder{}
		rc := &RunContext{History: []ai.Message{ai.UserMessage("three tier app")}}
		result, err := parrot.Run(context.Background(), rc, rec.emit)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"drawio_agent:model_token",
			"drawio_agent:model_token",
			"drawio_agent:model_token",
			"drawio_tools:tool_start",
			"drawio_tools:model_token",
			"drawio_tools:model_token",
			"drawio_tools:tool_end",
		}, rec.kinds())

		start := rec.events[3]
		assert.Equal(t, "generate_drawio", start.Name)
		assert.Equal(t, map[string]any{"instruction": "three tier app"}, start.Input)
		assert.Equal(t, "<mxfile><diagram></diagram></mxfile>", rec.events[6].Output)

		assert.Equal(t, "<mxfile><diagram></diagram></mxfile>", result.Artifact)
		require.Len(t, result.ToolCalls, 1)
		assert.Equal(t, "call_a", result.ToolCalls[0].ID)

		reqs := llm.Requests()
		require.Len(t, reqs, 2)
		require.Len(t, reqs[0].Tools, 1)
		assert.Equal(t, "generate_drawio", reqs[0].Tools[0].Name)
		assert.Equal(t, "three tier app", reqs[1].Messages[1].Content)
	})

	t.Run("no tool call runs the tool on the user text", func(t *testing.T) {
		llm := ai.NewMockLLMService(
			ai.TextScript("Sure."),
			ai.TextScript("<mxfile/>"),
		)
		parrot, err := NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		require.NoError(t, err)

		result, err := parrot.Run(context.Background(), &RunContext{History: []ai.Message{ai.UserMessage("k8s cluster")}}, (&recorder{}).emit)
		require.NoError(t, err)
		require.Len(t, result.ToolCalls, 1)
		assert.True(t, strings.HasPrefix(result.ToolCalls[0].ID, "call_"))
		assert.Equal(t, "k8s cluster", llm.Requests()[1].Messages[1].Content)
		assert.Equal(t, "<mxfile/>", result.Artifact)
	})

	t.Run("only the first call executes", func(t *testing.T) {
		persona := ai.MockScript{Deltas: []*ai.Delta{
			{ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "c1", Name: "generate_drawio", Arguments: `{"instruction":"first"}`}}},
			{ToolCalls: []ai.ToolCallDelta{{Index: 1, ID: "c2", Name: "generate_drawio", Arguments: `{"instruction":"second"}`}}},
		}}
		llm := ai.NewMockLLMService(persona, ai.TextScript("<mxfile/>"))
		parrot, err := NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		require.NoError(t, err)

		_, err = parrot.Run(context.Background(), &RunContext{History: []ai.Message{ai.UserMessage("x")}}, (&recorder{}).emit)
		require.NoError(t, err)
		assert.Len(t, llm.Requests(), 2)
		assert.Equal(t, "first", llm.Requests()[1].Messages[1].Content)
	})

	t.Run("blank artifact still ends the tool", func(t *testing.T) {
		llm := ai.NewMockLLMService(
			ai.ToolCallScript("c1", "generate_drawio", `{"instruction":"x"}`),
			ai.TextScript("<think>nothing to draw</think>"),
		)
		parrot, err := NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		require.NoError(t, err)

		rec := &recorder{}
		result, err := parrot.Run(context.Background(), &RunContext{History: []ai.Message{ai.UserMessage("x")}}, rec.emit)
		require.NoError(t, err)
		assert.Empty(t, result.Artifact)
		last := rec.events[len(rec.events)-1]
		assert.Equal(t, EventToolEnd, last.Kind)
		assert.Equal(t, "", last.Output)
	})

	t.Run("generation tool advertises the instruction schema", func(t *testing.T) {
		params := NewGenerationTool(spec, ai.NewMockLLMService()).Parameters()
		props := params["properties"].(map[string]any)
		instruction := props["instruction"].(map[string]any)
		assert.Contains(t, instruction["description"], "draw.io")
		assert.Equal(t, []string{"instruction"}, params["required"])
	})

	t.Run("tool failure surfaces", func(t *testing.T) {
		llm := ai.NewMockLLMService(
			ai.ToolCallScript("c1", "generate_drawio", `{"instruction":"x"}`),
			ai.MockScript{StartErr: errors.New("quota")},
		)
		parrot, err := NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		require.NoError(t, err)

		rec := &recorder{}
		_, err = parrot.Run(context.Background(), &RunContext{History: []ai.Message{ai.UserMessage("x")}}, rec.emit)
		require.Error(t, err)
		assert.Equal(t, "drawio_tools:tool_start", rec.kinds()[len(rec.events)-1])
	})
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(ai.NewMockLLMService(), []string{"mermaid"})
	require.NoError(t, err)

	for _, at := range AllAgentTypes {
		s, err := reg.Get(at)
		require.NoError(t, err, at)
		assert.Equal(t, at, s.Name())
	}

	s, _ := reg.Get(AgentMermaid)
	assert.IsType(t, &ToolParrot{}, s)
	s, _ = reg.Get(AgentDrawio)
	assert.IsType(t, &DirectParrot{}, s)

	_, err = reg.Get("spreadsheet")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, err = NewRegistry(nil, nil)
	assert.Error(t, err)
}
