package llm

// OpenAI-compatible function calling types

// OpenAITool represents a tool definition in OpenAI format
type OpenAITool struct {
	Type     string         `json:"type" yaml:"type"` // "function"
	Function OpenAIFunction `json:"function" yaml:"function"`
}

// OpenAIFunction represents a function definition. The legacy "functions"
// request field carries these without the OpenAITool envelope.
type OpenAIFunction struct {
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	Parameters  map[string]interface{} `json:"parameters" yaml:"parameters"` // JSON Schema
}

// FunctionCall is a function invocation as emitted by the model. Arguments is a
// JSON document encoded as a string.
type FunctionCall struct {
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments" yaml:"arguments"`
}

// OpenAIToolCall represents a tool call from the model
type OpenAIToolCall struct {
	ID       string       `json:"id" yaml:"id"`
	Type     string       `json:"type" yaml:"type"` // "function"
	Function FunctionCall `json:"function" yaml:"function"`
}

// Catalog is the tool registry as seen by a protocol: it can emit its
// definitions in either envelope.
type Catalog interface {
	Functions() []OpenAIFunction
	Tools() []OpenAITool
}

// ToolCallRequest is a call parsed out of an assistant response.
type ToolCallRequest struct {
	ID           string         // Wire id, or a generated one for protocols without ids
	Name         string         // Function name
	Arguments    map[string]any // Decoded arguments
	RawArguments string         // Arguments exactly as received
	ArgumentsErr error          // Set when RawArguments is not a JSON object
}

// CompletionRequest is the body of POST /chat/completions. Exactly one of
// Tools/Functions is set, depending on the protocol.
type CompletionRequest struct {
	Model        string           `json:"model"`
	Messages     []RequestMessage `json:"messages"`
	Tools        []OpenAITool     `json:"tools,omitempty"`
	ToolChoice   string           `json:"tool_choice,omitempty"`
	Functions    []OpenAIFunction `json:"functions,omitempty"`
	FunctionCall string           `json:"function_call,omitempty"`
}

// RequestMessage is the message format for function calling API requests.
// Uses *string for Content to allow null values for assistant messages with calls.
type RequestMessage struct {
	Role         string           `json:"role"`
	Content      *string          `json:"content"`
	Name         string           `json:"name,omitempty"`
	ToolCalls    []OpenAIToolCall `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall    `json:"function_call,omitempty"`
	ToolCallID   string           `json:"tool_call_id,omitempty"`
}

// ResponseMessage is the message of one completion choice.
type ResponseMessage struct {
	Role         string           `json:"role"`
	Content      *string          `json:"content"`
	ToolCalls    []OpenAIToolCall `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall    `json:"function_call,omitempty"`
}

// Text returns the message content, empty when the endpoint sent null.
func (m ResponseMessage) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Choice is one candidate response.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse contains the candidate responses of one completion call
type CompletionResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the error object returned by OpenAI-compatible endpoints.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// ConvertMessages converts conversation messages to the request format.
// Assistant messages that carry calls and no text are sent with null content;
// every other message keeps its content, even when empty.
func ConvertMessages(messages []Message) []RequestMessage {
	result := make([]RequestMessage, 0, len(messages))
	for _, msg := range messages {
		rm := RequestMessage{
			Role:         msg.Role,
			Name:         msg.Name,
			ToolCalls:    msg.ToolCalls,
			FunctionCall: msg.FunctionCall,
			ToolCallID:   msg.ToolCallID,
		}
		if msg.Role == RoleAssistant && msg.HasCalls() && msg.Content == "" {
			rm.Content = nil
		} else {
			content := msg.Content
			rm.Content = &content
		}
		result = append(result, rm)
	}
	return result
}
