package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Tool is the interface for agent tools.
// Tool 是代理工具的接口。
type Tool interface {
	// Name returns the name of the tool.
	Name() string

	// Description returns a description of what the tool does.
	Description() string

	// Parameters returns the JSON Schema of the tool input.
	Parameters() map[string]any

	// Run executes the tool with the raw JSON arguments of a tool call.
	// Progress is reported through emit.
	// Run 使用工具调用的原始 JSON 参数执行工具。
	Run(ctx context.Context, rc *RunContext, input string, emit EventHandler) (string, error)
}

// ToolFunc is the body of a BaseTool.
type ToolFunc func(ctx context.Context, rc *RunContext, input string, emit EventHandler) (string, error)

// BaseTool provides a reusable base implementation for tools.
// BaseTool 为工具提供可复用的基础实现。
type BaseTool struct {
	name        string
	description string
	params      map[string]any
	execute     ToolFunc
	validate    func(input string) error
}

// ToolOption is a function that configures a BaseTool.
// ToolOption 是配置 BaseTool 的函数。
type ToolOption func(*BaseTool)

// WithParameters sets the input schema.
func WithParameters(params map[string]any) ToolOption {
	return func(t *BaseTool) {
		t.params = params
	}
}

// NewBaseTool creates a new BaseTool.
// NewBaseTool 创建一个新的 BaseTool。
//
// Example:
//
//	tool := NewBaseTool(
//	    "generate_chart",
//	    "Generates an ECharts option",
//	    func(ctx context.Context, rc *RunContext, input string, emit EventHandler) (string, error) {
//	        return `{"series":[]}`, nil
//	    },
//	    WithParameters(InstructionSchema("What to chart")),
//	)
func NewBaseTool(name, description string, execute ToolFunc, opts ...ToolOption) *BaseTool {
	tool := &BaseTool{
		name:        name,
		description: description,
		execute:     execute,
		validate:    defaultValidator,
		params:      InstructionSchema(description),
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

// Name returns the name of the tool.
func (t *BaseTool) Name() string {
	return t.name
}

// Description returns the description of the tool.
func (t *BaseTool) Description() string {
	return t.description
}

// Parameters returns the JSON Schema for parameters.
func (t *BaseTool) Parameters() map[string]any {
	return t.params
}

// Run executes the tool with validation and error handling.
// Run 执行工具，包含验证和错误处理。
func (t *BaseTool) Run(ctx context.Context, rc *RunContext, input string, emit EventHandler) (string, error) {
	if err := t.validate(input); err != nil {
		return "", errors.Wrap(err, "input validation failed")
	}

	// A blank result is still a result; the caller renders what is left.
	result, err := t.execute(ctx, rc, input, emit)
	if err != nil {
		return "", errors.Wrap(err, "tool execution failed")
	}
	return result, nil
}

// defaultValidator requires a non-blank instruction.
func defaultValidator(input string) error {
	if strings.TrimSpace(ParseInstruction(input)) == "" {
		return errors.Wrap(ErrInvalidToolInput, "instruction cannot be empty")
	}
	return nil
}

// InstructionSchema is the input schema shared by the generation tools:
// a single required instruction string.
func InstructionSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"instruction": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"instruction"},
	}
}

// InstructionArgs builds the JSON arguments of an instruction call.
func InstructionArgs(instruction string) string {
	raw, _ := json.Marshal(map[string]string{"instruction": instruction})
	return string(raw)
}

// ParseInstruction reads the instruction out of tool-call arguments.
// Arguments that are not a JSON object are taken as the instruction itself.
func ParseInstruction(input string) string {
	var args struct {
		Instruction string `json:"instruction"`
	}
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &args) == nil {
		return args.Instruction
	}
	return trimmed
}

// ParseToolInput returns the decoded argument object, or the raw string
// when the arguments are not valid JSON.
func ParseToolInput(input string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(input), &obj); err == nil {
		return obj
	}
	return input
}

// ToolResult represents the result of a tool execution.
// ToolResult 表示工具执行的结果。
type ToolResult struct {
	Name      string        `json:"name"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error"`
	Success   bool          `json:"success"`
	Timestamp int64         `json:"timestamp"`
}

// NewToolResult creates a new ToolResult.
// NewToolResult 创建一个新的 ToolResult。
func NewToolResult(name, input, output string, duration time.Duration, err error) *ToolResult {
	result := &ToolResult{
		Name:      name,
		Input:     input,
		Output:    output,
		Duration:  duration,
		Success:   err == nil,
		Timestamp: time.Now().Unix(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
