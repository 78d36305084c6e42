package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the referenced session does not exist.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrParentMismatch indicates a parent message outside the session.
	ErrParentMismatch = errors.New("parent message does not belong to the session")
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ParseMessageRole validates a stored role.
func ParseMessageRole(s string) (MessageRole, error) {
	switch MessageRole(s) {
	case MessageRoleUser, MessageRoleAssistant:
		return MessageRole(s), nil
	}
	return "", fmt.Errorf("unknown message role %q", s)
}

type StepType string

const (
	StepAgentSelect StepType = "agent_select"
	StepToolStart   StepType = "tool_start"
	StepToolEnd     StepType = "tool_end"
)

type StepStatus string

const (
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
)

// Step is one progress record frozen into an assistant message.
type Step struct {
	Type    StepType   `json:"type"`
	Name    string     `json:"name"`
	Content string     `json:"content,omitempty"`
	Status  StepStatus `json:"status"`
	// Timestamp is unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// ChatMessage is one entry of a session's message forest. ParentID, when
// set, points at another message of the same session.
type ChatMessage struct {
	ID        int64       `json:"id"`
	SessionID int64       `json:"session_id"`
	ParentID  *int64      `json:"parent_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Images    []string    `json:"images"`
	Steps     []*Step     `json:"steps"`
	Agent     string      `json:"agent,omitempty"`
	CreatedTs int64       `json:"created_ts"`
}

// ToolOutputs returns the contents of the message's tool_end steps.
func (m *ChatMessage) ToolOutputs() []string {
	var out []string
	for _, s := range m.Steps {
		if s.Type == StepToolEnd && s.Content != "" {
			out = append(out, s.Content)
		}
	}
	return out
}

type FindChatMessage struct {
	ID        *int64
	SessionID *int64
}
