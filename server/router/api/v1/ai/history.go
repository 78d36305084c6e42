package ai

import (
	"log/slog"

	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/store"
)

// HistoryEntry is one client-supplied history message.
type HistoryEntry struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Images  []string      `json:"images,omitempty"`
	Steps   []*store.Step `json:"steps,omitempty"`
}

// fromLog converts the stored message log into history entries.
func fromLog(log []*store.ChatMessage) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(log))
	for _, m := range log {
		entries = append(entries, HistoryEntry{
			Role:    string(m.Role),
			Content: m.Content,
			Images:  m.Images,
			Steps:   m.Steps,
		})
	}
	return entries
}

// truncateAt keeps the log up to and including the message with id anchor.
// The whole log is returned when anchor is absent.
func truncateAt(log []*store.ChatMessage, anchor int64) []*store.ChatMessage {
	for i, m := range log {
		if m.ID == anchor {
			return log[:i+1]
		}
	}
	return log
}

// BuildHistory assembles the strategy input: entries mapped onto ai roles,
// a trailing user entry equal to prompt dropped once, then the current input.
// BuildHistory 组装对话历史，去除重复的最新用户消息并追加当前输入。
func BuildHistory(entries []HistoryEntry, prompt string, images []string) []ai.Message {
	messages := make([]ai.Message, 0, len(entries)+1)
	for _, e := range entries {
		role, ok := ai.ParseRole(e.Role)
		if !ok || role == ai.RoleSystem {
			slog.Debug("dropping history entry", slog.String("role", e.Role))
			continue
		}
		msg := ai.Message{Role: role, Content: e.Content}
		switch role {
		case ai.RoleUser:
			msg.Images = e.Images
		case ai.RoleAssistant:
			msg.ToolOutputs = toolOutputs(e.Steps)
		}
		messages = append(messages, msg)
	}

	if n := len(messages); n > 0 && messages[n-1].Role == ai.RoleUser && messages[n-1].Content == prompt {
		messages = messages[:n-1]
	}

	return append(messages, ai.Message{Role: ai.RoleUser, Content: prompt, Images: images})
}

func toolOutputs(steps []*store.Step) []string {
	return (&store.ChatMessage{Steps: steps}).ToolOutputs()
}
