package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLLMService tests service creation.
func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{
			name: "DeepSeek config",
			cfg: &LLMConfig{
				Model:       "deepseek-chat",
				APIKey:      "test-key",
				BaseURL:     "https://api.deepseek.com",
				MaxTokens:   2048,
				Temperature: 0.7,
			},
		},
		{
			name: "default endpoint",
			cfg:  &LLMConfig{Model: "gpt-4o", APIKey: "test-key"},
		},
		{
			name:        "missing model",
			cfg:         &LLMConfig{APIKey: "test-key"},
			expectError: true,
		},
		{
			name:        "nil config",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestResolveModelOverride(t *testing.T) {
	svc, err := NewLLMService(&LLMConfig{Model: "deepseek-chat", APIKey: "k", BaseURL: "https://api.deepseek.com"})
	require.NoError(t, err)
	s := svc.(*llmService)

	client, model := s.resolve(nil)
	assert.Same(t, s.client, client)
	assert.Equal(t, "deepseek-chat", model)

	client, model = s.resolve(&ModelConfig{Model: "deepseek-reasoner"})
	assert.Same(t, s.client, client, "model-only override keeps the shared client")
	assert.Equal(t, "deepseek-reasoner", model)

	client, model = s.resolve(&ModelConfig{APIKey: "other", BaseURL: "https://example.com/v1"})
	assert.NotSame(t, s.client, client)
	assert.Equal(t, "deepseek-chat", model)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"user", RoleUser, true},
		{"Human", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"ai", RoleAssistant, true},
		{" tool ", RoleTool, true},
		{"system", RoleSystem, true},
		{"function", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResponseMerge(t *testing.T) {
	t.Run("text concatenates", func(t *testing.T) {
		r := &Response{}
		r.Merge(&Delta{Content: "Hel"})
		r.Merge(&Delta{Content: "lo"})
		r.Merge(nil)
		assert.Equal(t, "Hello", r.Content)
		assert.Empty(t, r.ToolCalls)
	})

	t.Run("tool args merge by id then index", func(t *testing.T) {
		r := &Response{}
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "generate_diagram", Arguments: `{"instr`}}})
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `uction":`}}})
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Arguments: `"x"}`}}})

		require.Len(t, r.ToolCalls, 1)
		assert.Equal(t, "call_1", r.ToolCalls[0].ID)
		assert.Equal(t, "generate_diagram", r.ToolCalls[0].Name)
		assert.Equal(t, `{"instruction":"x"}`, r.ToolCalls[0].Arguments)
	})

	t.Run("distinct ids stay separate", func(t *testing.T) {
		r := &Response{}
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 0, ID: "a", Name: "one", Arguments: "1"}}})
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 1, ID: "b", Name: "two", Arguments: "2"}}})
		r.Merge(&Delta{ToolCalls: []ToolCallDelta{{Index: 1, Arguments: "2"}}})

		require.Len(t, r.ToolCalls, 2)
		assert.Equal(t, "1", r.ToolCalls[0].Arguments)
		assert.Equal(t, "22", r.ToolCalls[1].Arguments)
	})
}

func TestConvertMessages(t *testing.T) {
	out := ConvertMessages([]Message{
		SystemPrompt("sys"),
		{Role: RoleUser, Content: "look", Images: []string{"data:image/png;base64,AAA"}},
		{Role: RoleAssistant, Content: "ok", ToolCalls: []ToolCall{{ID: "c1", Name: "t", Arguments: "{}"}}},
		{Role: RoleTool, Content: "result", ToolCallID: "c1"},
		{Role: RoleTool, Content: `{"nodes":[],"edges":[]}`},
	})

	require.Len(t, out, 5)
	assert.Equal(t, openai.ChatMessageRoleSystem, out[0].Role)

	assert.Empty(t, out[1].Content)
	require.Len(t, out[1].MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, out[1].MultiContent[0].Type)
	assert.Equal(t, "data:image/png;base64,AAA", out[1].MultiContent[1].ImageURL.URL)

	require.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "c1", out[2].ToolCalls[0].ID)

	assert.Equal(t, openai.ChatMessageRoleTool, out[3].Role)
	assert.Equal(t, "c1", out[3].ToolCallID)

	assert.Equal(t, openai.ChatMessageRoleAssistant, out[4].Role, "orphan tool output is replayed as assistant text")
}

func TestDrain(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards every delta before merging", func(t *testing.T) {
		mock := NewMockLLMService(TextScript("a", "b", "c"))
		stream, err := mock.ChatStream(ctx, &ChatRequest{})
		require.NoError(t, err)

		var seen []string
		resp, err := Drain(stream, func(d *Delta) error {
			seen = append(seen, d.Content)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, seen)
		assert.Equal(t, "abc", resp.Content)
	})

	t.Run("mid-stream error keeps the partial response", func(t *testing.T) {
		boom := errors.New("upstream reset")
		script := TextScript("one", "two")
		script.Err = boom
		mock := NewMockLLMService(script)
		stream, err := mock.ChatStream(ctx, &ChatRequest{})
		require.NoError(t, err)

		resp, err := Drain(stream, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "onetwo", resp.Content)
	})

	t.Run("callback error stops the fold", func(t *testing.T) {
		mock := NewMockLLMService(TextScript("a", "b"))
		stream, err := mock.ChatStream(ctx, &ChatRequest{})
		require.NoError(t, err)

		stop := errors.New("client gone")
		resp, err := Drain(stream, func(*Delta) error { return stop })
		assert.ErrorIs(t, err, stop)
		assert.Empty(t, resp.Content)
	})
}
