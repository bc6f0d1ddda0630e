package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Protocol names accepted by ProtocolByName.
const (
	ProtocolFunctions = "functions"
	ProtocolTools     = "tools"
)

// ErrUnknownProtocol is returned for protocol names that are not supported.
var ErrUnknownProtocol = errors.New("unknown protocol")

// Protocol adapts the conversation to one function calling flavor of the
// chat completions API. The orchestration loop only talks to this interface.
type Protocol interface {
	// Name returns the protocol identifier
	Name() string

	// BuildRequest assembles a completion request for the full conversation
	BuildRequest(model string, messages []Message, catalog Catalog) CompletionRequest

	// ParseToolCallRequests extracts the calls requested by a response message,
	// in the order the model returned them. Empty means a plain answer.
	ParseToolCallRequests(msg ResponseMessage) []ToolCallRequest

	// AssistantMessage converts a response message into a log entry, keeping
	// the requested calls verbatim so results can be matched to them
	AssistantMessage(msg ResponseMessage) Message

	// ResultMessage builds the tool-result message answering call
	ResultMessage(call ToolCallRequest, content string) Message
}

// ProtocolByName returns the protocol adapter for name.
func ProtocolByName(name string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProtocolFunctions:
		return NewFunctionsProtocol(), nil
	case ProtocolTools:
		return ToolsProtocol{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s, %s)", ErrUnknownProtocol, name, ProtocolFunctions, ProtocolTools)
	}
}

// FunctionsProtocol is the legacy flavor: definitions go in "functions", the
// model answers with a single "function_call" that has no id, and results are
// sent back as "function" role messages.
type FunctionsProtocol struct {
	// NewID generates local ids for calls. The ids never go on the wire.
	NewID func() string
}

// NewFunctionsProtocol creates a legacy protocol adapter using uuid call ids.
func NewFunctionsProtocol() *FunctionsProtocol {
	return &FunctionsProtocol{NewID: uuid.NewString}
}

func (p *FunctionsProtocol) Name() string { return ProtocolFunctions }

func (p *FunctionsProtocol) BuildRequest(model string, messages []Message, catalog Catalog) CompletionRequest {
	req := CompletionRequest{
		Model:    model,
		Messages: ConvertMessages(messages),
	}
	if catalog != nil {
		if fns := catalog.Functions(); len(fns) > 0 {
			req.Functions = fns
			req.FunctionCall = "auto"
		}
	}
	return req
}

func (p *FunctionsProtocol) ParseToolCallRequests(msg ResponseMessage) []ToolCallRequest {
	if msg.FunctionCall == nil || msg.FunctionCall.Name == "" {
		return nil
	}
	id := ""
	if p.NewID != nil {
		id = p.NewID()
	}
	args, err := decodeArguments(msg.FunctionCall.Arguments)
	return []ToolCallRequest{{
		ID:           id,
		Name:         msg.FunctionCall.Name,
		Arguments:    args,
		RawArguments: msg.FunctionCall.Arguments,
		ArgumentsErr: err,
	}}
}

func (p *FunctionsProtocol) AssistantMessage(msg ResponseMessage) Message {
	out := Message{Role: RoleAssistant, Content: msg.Text()}
	if msg.FunctionCall != nil {
		fc := *msg.FunctionCall
		out.FunctionCall = &fc
	}
	return out
}

func (p *FunctionsProtocol) ResultMessage(call ToolCallRequest, content string) Message {
	return Message{Role: RoleFunction, Name: call.Name, Content: content}
}

// ToolsProtocol is the current flavor: definitions are wrapped in
// {type:"function"} envelopes under "tools", the model may return several
// "tool_calls" with ids, and each result is a "tool" message carrying the id.
type ToolsProtocol struct{}

func (ToolsProtocol) Name() string { return ProtocolTools }

func (ToolsProtocol) BuildRequest(model string, messages []Message, catalog Catalog) CompletionRequest {
	req := CompletionRequest{
		Model:    model,
		Messages: ConvertMessages(messages),
	}
	if catalog != nil {
		if tools := catalog.Tools(); len(tools) > 0 {
			req.Tools = tools
			req.ToolChoice = "auto"
		}
	}
	return req
}

func (ToolsProtocol) ParseToolCallRequests(msg ResponseMessage) []ToolCallRequest {
	var calls []ToolCallRequest
	for _, tc := range functionCalls(msg.ToolCalls) {
		args, err := decodeArguments(tc.Function.Arguments)
		calls = append(calls, ToolCallRequest{
			ID:           tc.ID,
			Name:         tc.Function.Name,
			Arguments:    args,
			RawArguments: tc.Function.Arguments,
			ArgumentsErr: err,
		})
	}
	return calls
}

func (ToolsProtocol) AssistantMessage(msg ResponseMessage) Message {
	out := Message{Role: RoleAssistant, Content: msg.Text()}
	out.ToolCalls = functionCalls(msg.ToolCalls)
	return out
}

// functionCalls keeps the calls of type "function", the only kind dispatched,
// so every call left in the log gets a result.
func functionCalls(calls []OpenAIToolCall) []OpenAIToolCall {
	var out []OpenAIToolCall
	for _, tc := range calls {
		if tc.Type == "" || tc.Type == "function" {
			out = append(out, tc)
		}
	}
	return out
}

func (ToolsProtocol) ResultMessage(call ToolCallRequest, content string) Message {
	return Message{Role: RoleTool, ToolCallID: call.ID, Content: content}
}

// decodeArguments parses the JSON arguments string of a call. An empty string
// is an empty argument set.
func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return args, nil
}

var (
	_ Protocol = (*FunctionsProtocol)(nil)
	_ Protocol = ToolsProtocol{}
)
