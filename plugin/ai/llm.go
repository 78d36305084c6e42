package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Role is the closed set of message roles understood by the LLM layer.
// Roles are decided once when history is ingested.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole maps a free-form role string onto the closed set.
// Unknown roles report false.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, true
	case "user", "human":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	case "tool":
		return RoleTool, true
	default:
		return "", false
	}
}

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
	// Images holds data URLs or http URLs attached to a user message.
	Images []string
	// ToolCalls is set on assistant messages that invoked tools.
	ToolCalls []ToolCall
	// ToolCallID is set on tool messages.
	ToolCallID string
	// ToolOutputs carries the results of tools the assistant ran in a
	// previous turn. They are never sent to the provider.
	ToolOutputs []string
}

// ToolCall is a fully merged tool invocation.
type ToolCall struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// ToolCallDelta is one streamed fragment of a tool invocation.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Delta is one streamed chunk of a response.
type Delta struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// ToolDescriptor is a callable tool schema bound to a request.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ModelConfig overrides the default model, credential and endpoint for a
// single request.
type ModelConfig struct {
	Model   string `json:"model_id"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// IsEmpty reports whether the override carries nothing.
func (m *ModelConfig) IsEmpty() bool {
	return m == nil || (m.Model == "" && m.APIKey == "" && m.BaseURL == "")
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDescriptor
	// ToolChoice forces a tool by name when set.
	ToolChoice  string
	Model       *ModelConfig
	MaxTokens   int
	Temperature *float32
}

// Stream is a lazy, finite, non-restartable sequence of deltas.
// Recv returns io.EOF once the sequence is exhausted.
type Stream interface {
	Recv() (*Delta, error)
	Close() error
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat.
	Chat(ctx context.Context, req *ChatRequest) (string, error)

	// ChatStream performs streaming chat.
	ChatStream(ctx context.Context, req *ChatRequest) (Stream, error)
}

type llmService struct {
	client      *openai.Client
	cfg         *LLMConfig
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService backed by an OpenAI-compatible API.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	return &llmService{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		cfg:         cfg,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func newClient(apiKey, baseURL string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// resolve picks the client and model for a request, honoring a per-request
// override.
func (s *llmService) resolve(override *ModelConfig) (*openai.Client, string) {
	if override.IsEmpty() {
		return s.client, s.cfg.Model
	}

	model := s.cfg.Model
	if override.Model != "" {
		model = override.Model
	}
	if override.APIKey == "" && override.BaseURL == "" {
		return s.client, model
	}

	apiKey, baseURL := s.cfg.APIKey, s.cfg.BaseURL
	if override.APIKey != "" {
		apiKey = override.APIKey
	}
	if override.BaseURL != "" {
		baseURL = override.BaseURL
	}
	return newClient(apiKey, baseURL), model
}

func (s *llmService) buildRequest(req *ChatRequest, model string) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    ConvertMessages(req.Messages),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if req.ToolChoice != "" {
		out.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ToolChoice},
		}
	}
	return out
}

func (s *llmService) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	client, model := s.resolve(req.Model)

	resp, err := client.CreateChatCompletion(ctx, s.buildRequest(req, model))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *llmService) ChatStream(ctx context.Context, req *ChatRequest) (Stream, error) {
	client, model := s.resolve(req.Model)

	chatReq := s.buildRequest(req, model)
	chatReq.Stream = true

	stream, err := client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips provider chunks that carry no content, such as usage frames.
func (s *openaiStream) Recv() (*Delta, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0].Delta
		delta := &Delta{Content: choice.Content}
		for i, tc := range choice.ToolCalls {
			index := i
			if tc.Index != nil {
				index = *tc.Index
			}
			delta.ToolCalls = append(delta.ToolCalls, ToolCallDelta{
				Index:     index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if delta.Content == "" && len(delta.ToolCalls) == 0 {
			continue
		}
		return delta, nil
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

// ConvertMessages maps role-tagged messages onto the provider shape.
// Tool messages without a call id cannot be answered to a call, so they are
// sent as assistant text instead.
func ConvertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case RoleUser:
			if len(m.Images) == 0 {
				out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
				continue
			}
			parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: m.Content}}
			for _, image := range m.Images {
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: image},
				})
			}
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:       tc.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
				})
			}
			out = append(out, msg)
		case RoleTool:
			if m.ToolCallID == "" {
				out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
				continue
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

// Drain folds a stream into a Response, calling onDelta for every delta
// before it is merged.
func Drain(stream Stream, onDelta func(*Delta) error) (*Response, error) {
	defer stream.Close()

	resp := &Response{}
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return resp, nil
		}
		if err != nil {
			return resp, err
		}
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return resp, err
			}
		}
		resp.Merge(delta)
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FormatMessages formats messages for prompt templates.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
