package ai

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrNoScript is returned when MockLLMService runs out of scripted replies.
var ErrNoScript = errors.New("mock llm: no scripted response left")

// MockScript is one scripted reply.
type MockScript struct {
	Deltas []*Delta
	// Err is returned by Recv after all deltas are delivered.
	Err error
	// StartErr fails the call before any delta is produced.
	StartErr error
}

// TextScript builds a reply streaming the given text chunks.
func TextScript(chunks ...string) MockScript {
	script := MockScript{}
	for _, c := range chunks {
		script.Deltas = append(script.Deltas, &Delta{Content: c})
	}
	return script
}

// ToolCallScript builds a reply that streams one tool call whose arguments
// arrive in the given fragments. Only the first fragment carries the id and
// name, as OpenAI-compatible providers do.
func ToolCallScript(id, name string, argChunks ...string) MockScript {
	script := MockScript{}
	for i, c := range argChunks {
		tc := ToolCallDelta{Index: 0, Arguments: c}
		if i == 0 {
			tc.ID, tc.Name = id, name
		}
		script.Deltas = append(script.Deltas, &Delta{ToolCalls: []ToolCallDelta{tc}})
	}
	return script
}

// MockLLMService is a scripted LLMService for testing.
// Replies are consumed in call order unless Handler is set.
type MockLLMService struct {
	mu       sync.Mutex
	scripts  []MockScript
	requests []*ChatRequest

	// Handler, when set, answers every call. It must be safe for
	// concurrent use.
	Handler func(req *ChatRequest) MockScript
}

// NewMockLLMService creates a mock that replays scripts in order.
func NewMockLLMService(scripts ...MockScript) *MockLLMService {
	return &MockLLMService{scripts: scripts}
}

// Requests returns the requests received so far.
func (m *MockLLMService) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockLLMService) next(req *ChatRequest) (MockScript, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	handler := m.Handler
	if handler == nil {
		defer m.mu.Unlock()
		if len(m.scripts) == 0 {
			return MockScript{}, ErrNoScript
		}
		script := m.scripts[0]
		m.scripts = m.scripts[1:]
		return script, nil
	}
	m.mu.Unlock()
	return handler(req), nil
}

func (m *MockLLMService) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	script, err := m.next(req)
	if err != nil {
		return "", err
	}
	if script.StartErr != nil {
		return "", script.StartErr
	}
	resp := &Response{}
	for _, d := range script.Deltas {
		resp.Merge(d)
	}
	if script.Err != nil {
		return "", script.Err
	}
	return resp.Content, nil
}

func (m *MockLLMService) ChatStream(ctx context.Context, req *ChatRequest) (Stream, error) {
	script, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if script.StartErr != nil {
		return nil, script.StartErr
	}
	return &mockStream{ctx: ctx, script: script}, nil
}

type mockStream struct {
	ctx    context.Context
	script MockScript
	pos    int
}

func (s *mockStream) Recv() (*Delta, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos < len(s.script.Deltas) {
		d := s.script.Deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.script.Err != nil {
		return nil, s.script.Err
	}
	return nil, io.EOF
}

func (s *mockStream) Close() error {
	return nil
}
