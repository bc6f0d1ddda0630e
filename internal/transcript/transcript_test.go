package transcript

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonyos/webpilot/internal/llm"
)

func sample() Transcript {
	return Transcript{
		Session:  "3f1c",
		Backend:  "xai",
		Model:    "grok-beta",
		Protocol: "tools",
		Status:   "answered",
		Turns:    2,
		Answer:   "The careers page is https://x.ai/careers.",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a helpful webpage navigation assistant."},
			{Role: llm.RoleUser, Content: "Hi, can you go to the career page of the xAI website?"},
			{Role: llm.RoleAssistant, ToolCalls: []llm.OpenAIToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: llm.FunctionCall{Name: "open_website", Arguments: `{"url":"https://x.ai/"}`},
			}}},
			{Role: llm.RoleTool, ToolCallID: "call_1", Content: "<html>\n<a href=\"/careers\">Careers</a>\n</html>"},
			{Role: llm.RoleAssistant, Content: "The careers page is https://x.ai/careers."},
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))

	out := buf.String()
	assert.Contains(t, out, "backend: xai")
	assert.Contains(t, out, "tool_call_id: call_1")
	assert.NotContains(t, out, "function_call:", "empty fields are omitted")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, WriteFile(path, sample()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := Read(f)
	require.NoError(t, err)
	assert.Equal(t, sample().Messages, got.Messages)
}

func TestWriteFile_BadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "session.yaml"), sample())
	assert.Error(t, err)
}
