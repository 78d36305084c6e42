package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/agent"
)

func collect(events *[]agent.Event) agent.EventHandler {
	return func(e agent.Event) error {
		*events = append(*events, e)
		return nil
	}
}

func newGraph(t *testing.T, llm ai.LLMService) *Graph {
	t.Helper()
	registry, err := agent.NewRegistry(llm, nil)
	require.NoError(t, err)
	return New(agent.NewChatRouter(llm, agent.ChatRouterConfig{}), registry)
}

func TestGraphRunsRouterThenOneStrategy(t *testing.T) {
	llm := ai.NewMockLLMService(
		ai.TextScript("charts"),
		ai.TextScript(`<code>{"series":[]}</code>`),
	)
	g := newGraph(t, llm)

	var events []agent.Event
	rc := &agent.RunContext{History: []ai.Message{ai.UserMessage("draw quarterly revenue")}}
	out, err := g.Run(context.Background(), rc, "", collect(&events))
	require.NoError(t, err)

	assert.Equal(t, agent.AgentCharts, out.Route.Route)
	assert.Equal(t, `{"series":[]}`, out.Result.Artifact)

	require.Len(t, events, 5)
	assert.Equal(t, agent.Event{Node: "router", Kind: agent.EventChainStart, Name: "router"}, events[0])
	assert.Equal(t, agent.EventChainEnd, events[1].Kind)
	assert.Equal(t, agent.AgentCharts, events[1].Output)
	assert.Equal(t, "charts_agent", events[2].Node)
	assert.Equal(t, agent.EventChainStart, events[2].Kind)
	assert.Equal(t, agent.EventModelToken, events[3].Kind)
	assert.Equal(t, agent.EventChainEnd, events[4].Kind)
}

func TestGraphPinnedAgent(t *testing.T) {
	llm := ai.NewMockLLMService(ai.TextScript("graph TD\nA-->B"))
	g := newGraph(t, llm)

	var events []agent.Event
	out, err := g.Run(context.Background(), &agent.RunContext{History: []ai.Message{ai.UserMessage("x")}}, "mermaid", collect(&events))
	require.NoError(t, err)
	assert.Equal(t, agent.RouteMethodExplicit, out.Route.Method)
	assert.Len(t, llm.Requests(), 1)
}

func TestGraphStrategyFailure(t *testing.T) {
	script := ai.TextScript("partial")
	script.Err = errors.New("boom")
	llm := ai.NewMockLLMService(ai.TextScript("mindmap"), script)
	g := newGraph(t, llm)

	var events []agent.Event
	out, err := g.Run(context.Background(), &agent.RunContext{History: []ai.Message{ai.UserMessage("x")}}, "", collect(&events))
	require.Error(t, err)
	assert.Nil(t, out.Result)
	// No chain_end for the failed strategy.
	assert.Equal(t, agent.EventModelToken, events[len(events)-1].Kind)
}

func TestGraphEmitAbort(t *testing.T) {
	g := newGraph(t, ai.NewMockLLMService())
	stop := errors.New("client gone")
	_, err := g.Run(context.Background(), &agent.RunContext{}, "general", func(agent.Event) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestGraphCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newGraph(t, ai.NewMockLLMService()).Run(ctx, &agent.RunContext{}, "", collect(new([]agent.Event)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ROUTER", StateRouter.String())
	assert.Equal(t, "STRATEGY", StateStrategy.String())
	assert.Equal(t, "END", StateEnd.String())
}
