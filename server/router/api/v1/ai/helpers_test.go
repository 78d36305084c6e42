package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	aiplugin "github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/agent"
	"github.com/hrygo/divinecanvas/plugin/ai/graph"
	"github.com/hrygo/divinecanvas/store"
	storetest "github.com/hrygo/divinecanvas/store/test"
)

type recordedEvent struct {
	Name string
	Data any
}

// recordingSink collects events. With failOn set, sending that event fails
// as a closed stream would.
type recordingSink struct {
	events []recordedEvent
	failOn string
}

func (s *recordingSink) Send(event string, data any) error {
	if event == s.failOn {
		return ErrStreamClosed
	}
	s.events = append(s.events, recordedEvent{Name: event, Data: data})
	return nil
}

func (s *recordingSink) names() []string {
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Name)
	}
	return out
}

func (s *recordingSink) find(name string) []any {
	var out []any
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e.Data)
		}
	}
	return out
}

// newTestService wires the real router, registry and graph around a
// scripted LLM and a migrated sqlite store.
func newTestService(t *testing.T, llm aiplugin.LLMService) (*ChatService, *store.Store) {
	t.Helper()
	ts := storetest.NewTestingStore(context.Background(), t)
	registry, err := agent.NewRegistry(llm, nil)
	require.NoError(t, err)
	g := graph.New(agent.NewChatRouter(llm, agent.ChatRouterConfig{}), registry)
	return NewChatService(ts, g), ts
}

func int64Ptr(v int64) *int64 {
	return &v
}
