package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// staticCatalog is a Catalog with a single definition
type staticCatalog struct{}

func (staticCatalog) Functions() []OpenAIFunction {
	return []OpenAIFunction{{
		Name:        "open_website",
		Description: "Open a website and return the HTML as a string",
		Parameters:  map[string]interface{}{"type": "object"},
	}}
}

func (c staticCatalog) Tools() []OpenAITool {
	return []OpenAITool{{Type: "function", Function: c.Functions()[0]}}
}

func TestMessage_IsToolResult(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleSystem, false},
		{RoleUser, false},
		{RoleAssistant, false},
		{RoleTool, true},
		{RoleFunction, true},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			msg := Message{Role: tt.role}
			if got := msg.IsToolResult(); got != tt.want {
				t.Errorf("IsToolResult() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertMessages(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "You are helpful."},
		{Role: RoleUser, Content: ""},
		{Role: RoleAssistant, FunctionCall: &FunctionCall{Name: "open_website", Arguments: `{"url":"https://x.ai/"}`}},
		{Role: RoleFunction, Name: "open_website", Content: "<html></html>"},
		{Role: RoleAssistant, Content: "Done."},
	}

	converted := ConvertMessages(messages)

	if len(converted) != len(messages) {
		t.Fatalf("ConvertMessages() returned %d messages, want %d", len(converted), len(messages))
	}
	if converted[1].Content == nil || *converted[1].Content != "" {
		t.Error("user message with empty content should keep an empty string")
	}
	if converted[2].Content != nil {
		t.Error("assistant message with a call and no text should have null content")
	}
	if converted[2].FunctionCall == nil || converted[2].FunctionCall.Name != "open_website" {
		t.Error("function call should be carried over")
	}
	if converted[3].Name != "open_website" {
		t.Errorf("ConvertMessages()[3].Name = %q, want %q", converted[3].Name, "open_website")
	}
	if converted[4].Content == nil || *converted[4].Content != "Done." {
		t.Error("plain assistant content should be kept")
	}
}

func TestFunctionsProtocol_BuildRequest(t *testing.T) {
	p := NewFunctionsProtocol()
	req := p.BuildRequest("gpt-4o", []Message{{Role: RoleUser, Content: "hi"}}, staticCatalog{})

	if req.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", req.Model, "gpt-4o")
	}
	if len(req.Functions) != 1 || req.FunctionCall != "auto" {
		t.Errorf("expected functions with function_call=auto, got %d functions, %q", len(req.Functions), req.FunctionCall)
	}
	if len(req.Tools) != 0 || req.ToolChoice != "" {
		t.Error("legacy protocol should not send tools")
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), `"tools"`) {
		t.Errorf("request JSON should omit tools: %s", raw)
	}
}

func TestToolsProtocol_BuildRequest(t *testing.T) {
	req := ToolsProtocol{}.BuildRequest("grok-beta", nil, staticCatalog{})

	if len(req.Tools) != 1 || req.ToolChoice != "auto" {
		t.Errorf("expected tools with tool_choice=auto, got %d tools, %q", len(req.Tools), req.ToolChoice)
	}
	if req.Tools[0].Type != "function" {
		t.Errorf("Tools[0].Type = %q, want %q", req.Tools[0].Type, "function")
	}
	if len(req.Functions) != 0 {
		t.Error("tools protocol should not send functions")
	}
}

func TestFunctionsProtocol_ParseToolCallRequests(t *testing.T) {
	p := &FunctionsProtocol{NewID: func() string { return "local-1" }}

	t.Run("plain answer", func(t *testing.T) {
		content := "Hello"
		calls := p.ParseToolCallRequests(ResponseMessage{Role: RoleAssistant, Content: &content})
		if len(calls) != 0 {
			t.Errorf("expected no calls, got %d", len(calls))
		}
	})

	t.Run("function call", func(t *testing.T) {
		calls := p.ParseToolCallRequests(ResponseMessage{
			Role:         RoleAssistant,
			FunctionCall: &FunctionCall{Name: "open_website", Arguments: `{"url":"https://x.ai/"}`},
		})
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].ID != "local-1" {
			t.Errorf("ID = %q, want %q", calls[0].ID, "local-1")
		}
		if calls[0].Arguments["url"] != "https://x.ai/" {
			t.Errorf("Arguments[url] = %v", calls[0].Arguments["url"])
		}
		if calls[0].ArgumentsErr != nil {
			t.Errorf("ArgumentsErr = %v", calls[0].ArgumentsErr)
		}
	})

	t.Run("malformed arguments", func(t *testing.T) {
		calls := p.ParseToolCallRequests(ResponseMessage{
			FunctionCall: &FunctionCall{Name: "click", Arguments: `{"html":`},
		})
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].ArgumentsErr == nil {
			t.Error("expected ArgumentsErr for malformed JSON")
		}
		if calls[0].RawArguments != `{"html":` {
			t.Errorf("RawArguments = %q", calls[0].RawArguments)
		}
	})
}

func TestToolsProtocol_ParseToolCallRequests(t *testing.T) {
	msg := ResponseMessage{
		Role: RoleAssistant,
		ToolCalls: []OpenAIToolCall{
			{ID: "call_1", Type: "function", Function: FunctionCall{Name: "open_website", Arguments: `{"url":"https://x.ai/"}`}},
			{ID: "call_2", Type: "function", Function: FunctionCall{Name: "click", Arguments: `{"html":"<p></p>","button":"Go"}`}},
		},
	}

	calls := ToolsProtocol{}.ParseToolCallRequests(msg)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[1].ID != "call_2" {
		t.Errorf("calls out of order: %q, %q", calls[0].ID, calls[1].ID)
	}
	if calls[1].Arguments["button"] != "Go" {
		t.Errorf("Arguments[button] = %v", calls[1].Arguments["button"])
	}

	result := ToolsProtocol{}.ResultMessage(calls[0], "ok")
	if result.Role != RoleTool || result.ToolCallID != "call_1" {
		t.Errorf("ResultMessage() = %+v", result)
	}

	assistant := ToolsProtocol{}.AssistantMessage(msg)
	if len(assistant.ToolCalls) != 2 || assistant.ToolCalls[1].ID != "call_2" {
		t.Errorf("AssistantMessage() should keep tool calls verbatim, got %+v", assistant.ToolCalls)
	}
}

func TestToolsProtocol_SkipsNonFunctionCalls(t *testing.T) {
	msg := ResponseMessage{
		Role: RoleAssistant,
		ToolCalls: []OpenAIToolCall{
			{ID: "call_1", Type: "code_interpreter"},
			{ID: "call_2", Type: "function", Function: FunctionCall{Name: "click", Arguments: `{"html":"","button":"Go"}`}},
		},
	}

	calls := ToolsProtocol{}.ParseToolCallRequests(msg)
	if len(calls) != 1 || calls[0].ID != "call_2" {
		t.Fatalf("ParseToolCallRequests() = %+v, want only call_2", calls)
	}

	// every call kept in the log must be one that gets a result
	assistant := ToolsProtocol{}.AssistantMessage(msg)
	if len(assistant.ToolCalls) != len(calls) || assistant.ToolCalls[0].ID != calls[0].ID {
		t.Errorf("AssistantMessage().ToolCalls = %+v, want the parsed calls", assistant.ToolCalls)
	}

	only := ResponseMessage{Role: RoleAssistant, ToolCalls: []OpenAIToolCall{{ID: "call_3", Type: "retrieval"}}}
	if calls := (ToolsProtocol{}).ParseToolCallRequests(only); len(calls) != 0 {
		t.Errorf("ParseToolCallRequests() = %+v, want none", calls)
	}
}

func TestProtocolByName(t *testing.T) {
	for _, name := range []string{"functions", "tools", " Tools "} {
		if _, err := ProtocolByName(name); err != nil {
			t.Errorf("ProtocolByName(%q) error = %v", name, err)
		}
	}
	if _, err := ProtocolByName("xml"); !errors.Is(err, ErrUnknownProtocol) {
		t.Errorf("ProtocolByName(xml) error = %v, want ErrUnknownProtocol", err)
	}
}

func TestBackendByName(t *testing.T) {
	b, err := BackendByName("XAI")
	if err != nil {
		t.Fatalf("BackendByName() error = %v", err)
	}
	if b.BaseURL != "https://api.x.ai/v1" {
		t.Errorf("BaseURL = %q", b.BaseURL)
	}
	if _, err := BackendByName("gemini"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("BackendByName(gemini) error = %v, want ErrUnknownBackend", err)
	}
}

func TestNewOpenAI(t *testing.T) {
	client := NewOpenAI("test-key", "")
	if client == nil {
		t.Fatal("NewOpenAI() returned nil")
	}
	if client.Model != "gpt-4o" {
		t.Errorf("NewOpenAI().Model = %q, want %q", client.Model, "gpt-4o")
	}
	if client.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("NewOpenAI().BaseURL = %q, want %q", client.BaseURL, "https://api.openai.com/v1")
	}
}

func TestClient_ModelName(t *testing.T) {
	tests := []string{"gpt-4o", "grok-beta", "grok-2"}

	for _, model := range tests {
		t.Run(model, func(t *testing.T) {
			client := NewXAI("key", model)
			if client.ModelName() != model {
				t.Errorf("ModelName() = %q, want %q", client.ModelName(), model)
			}
		})
	}
}

func TestClient_Complete(t *testing.T) {
	var gotAuth string
	var gotBody CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "open_website", "arguments": "{\"url\":\"https://x.ai/\"}"}}]
				},
				"finish_reason": "tool_calls"
			}]
		}`)
	}))
	defer server.Close()

	client := NewXAI("test-key", "grok-beta")
	client.BaseURL = server.URL

	req := ToolsProtocol{}.BuildRequest("", []Message{{Role: RoleUser, Content: "hi"}}, staticCatalog{})
	resp, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "grok-beta" {
		t.Errorf("request model = %q, want client default %q", gotBody.Model, "grok-beta")
	}
	if gotBody.ToolChoice != "auto" {
		t.Errorf("request tool_choice = %q, want auto", gotBody.ToolChoice)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	msg := resp.Choices[0].Message
	if msg.Content != nil {
		t.Error("null content should decode to nil")
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != "open_website" {
		t.Errorf("unexpected tool calls: %+v", msg.ToolCalls)
	}
}

func TestClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error object",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "invalid api key", "type": "auth"}}`,
			wantErr: "invalid api key",
		},
		{
			name:    "non-json failure",
			status:  http.StatusBadGateway,
			body:    `upstream unavailable`,
			wantErr: "status 502",
		},
		{
			name:    "malformed success",
			status:  http.StatusOK,
			body:    `{"choices": [`,
			wantErr: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewOpenAI("key", "gpt-4o")
			client.BaseURL = server.URL

			_, err := client.Complete(context.Background(), CompletionRequest{})
			if err == nil {
				t.Fatal("Complete() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Complete() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestClient_CompleteWithoutKey(t *testing.T) {
	client := NewOpenAI("", "gpt-4o")
	if _, err := client.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Error("Complete() without API key should fail before any request")
	}
}

func TestClient_CompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewOpenAI("key", "gpt-4o")
	client.BaseURL = server.URL
	if client.Timeout != 2*time.Minute {
		t.Errorf("default Timeout = %v, want 2m", client.Timeout)
	}
	client.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Complete() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Complete() took %v, Timeout was not applied", elapsed)
	}
}

func TestClient_CompleteCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewOpenAI("key", "gpt-4o")
	client.BaseURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}
