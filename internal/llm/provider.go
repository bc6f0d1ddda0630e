package llm

import "context"

// Conversation roles. RoleTool and RoleFunction are the two wire renderings of a
// tool result: tool_calls based protocols answer with "tool", the legacy
// function_call protocol answers with "function".
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleFunction  = "function"
)

// Message represents a chat message
type Message struct {
	Role         string           `json:"role" yaml:"role"`
	Content      string           `json:"content" yaml:"content"`
	Name         string           `json:"name,omitempty" yaml:"name,omitempty"`                   // Function name on legacy result messages
	ToolCalls    []OpenAIToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`       // Tool calls requested by the assistant
	FunctionCall *FunctionCall    `json:"function_call,omitempty" yaml:"function_call,omitempty"` // Legacy single function call
	ToolCallID   string           `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`   // Call answered by a tool message
}

// IsToolResult reports whether the message carries a tool's output back to the model.
func (m Message) IsToolResult() bool {
	return m.Role == RoleTool || m.Role == RoleFunction
}

// HasCalls reports whether an assistant message requests at least one call.
func (m Message) HasCalls() bool {
	return len(m.ToolCalls) > 0 || m.FunctionCall != nil
}

// Clone returns a copy of m that shares no call data with it.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]OpenAIToolCall(nil), m.ToolCalls...)
	}
	if m.FunctionCall != nil {
		fc := *m.FunctionCall
		m.FunctionCall = &fc
	}
	return m
}

// Provider is the interface for chat completion backends
type Provider interface {
	// Complete sends one completion request and blocks until the endpoint answers
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelName returns the model requests are sent to
	ModelName() string
}
