package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/logging"
)

// echoTool returns its "text" argument
type echoTool struct {
	BaseTool
	calls int
}

func newEchoTool(name string) *echoTool {
	return &echoTool{BaseTool: BaseTool{Def: ToolSpec{
		Name:        name,
		Description: "Echo text back",
		Parameters: &JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"text": {Type: "string", Description: "Text to echo"},
			},
			Required: []string{"text"},
		},
	}}}
}

func (e *echoTool) Execute(ctx context.Context, args map[string]any) string {
	e.calls++
	s, _ := args["text"].(string)
	return s
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newEchoTool("echo")))

	err := r.Register(newEchoTool("echo"))
	assert.Error(t, err)
	assert.Error(t, r.Register(newEchoTool("")))
	assert.Error(t, r.Register(nil))
	assert.Len(t, r.List(), 1)
}

func TestDefaultRegistry_UniqueNamesInOrder(t *testing.T) {
	r := DefaultRegistry(Options{Logger: logging.NewNop()})

	specs := r.List()
	require.Len(t, specs, 2)
	assert.Equal(t, "open_website", specs[0].Name)
	assert.Equal(t, "click", specs[1].Name)

	seen := map[string]bool{}
	for _, spec := range specs {
		assert.False(t, seen[spec.Name], "duplicate tool name %s", spec.Name)
		seen[spec.Name] = true
	}
}

func TestRegistry_EnvelopesRoundTrip(t *testing.T) {
	r := DefaultRegistry(Options{Logger: logging.NewNop()})

	t.Run("functions", func(t *testing.T) {
		raw, err := json.Marshal(r.Functions())
		require.NoError(t, err)

		var decoded []llm.OpenAIFunction
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Len(t, decoded, len(r.List()))

		for i, fn := range decoded {
			spec, err := SpecFromFunction(fn)
			require.NoError(t, err)
			assert.Equal(t, r.List()[i], spec)
		}
	})

	t.Run("tools", func(t *testing.T) {
		raw, err := json.Marshal(r.Tools())
		require.NoError(t, err)

		var decoded []llm.OpenAITool
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Len(t, decoded, len(r.List()))

		for i, tool := range decoded {
			assert.Equal(t, "function", tool.Type)
			spec, err := SpecFromFunction(tool.Function)
			require.NoError(t, err)
			assert.Equal(t, r.List()[i], spec)
		}
	})
}

func TestRegistry_EnvelopesShareContent(t *testing.T) {
	r := DefaultRegistry(Options{Logger: logging.NewNop()})

	fns := r.Functions()
	tools := r.Tools()
	require.Len(t, tools, len(fns))
	for i := range fns {
		assert.Equal(t, fns[i], tools[i].Function)
	}

	params := fns[0].Parameters
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"url"}, params["required"])
	props := params["properties"].(map[string]interface{})
	url := props["url"].(map[string]interface{})
	assert.Equal(t, "https://x.ai/", url["example_value"])
}

func TestRegistry_Dispatch(t *testing.T) {
	echo := newEchoTool("echo")
	r := NewRegistry()
	require.NoError(t, r.Register(echo))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := r.Dispatch(ctx, llm.ToolCallRequest{ID: "call_1", Name: "echo", Arguments: map[string]any{"text": "hi"}})
		require.NoError(t, err)
		assert.Equal(t, ToolResult{ToolCallID: "call_1", Content: "hi"}, res)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := r.Dispatch(ctx, llm.ToolCallRequest{ID: "call_2", Name: "navigate"})
		assert.True(t, errors.Is(err, ErrUnknownTool))
	})

	t.Run("missing argument", func(t *testing.T) {
		before := echo.calls
		res, err := r.Dispatch(ctx, llm.ToolCallRequest{ID: "call_3", Name: "echo", Arguments: map[string]any{}})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, "call_3", res.ToolCallID)
		assert.Equal(t, "Invalid arguments for echo: missing required argument: text", res.Content)
		assert.Equal(t, before, echo.calls, "tool must not run with missing arguments")
	})

	t.Run("undecodable arguments", func(t *testing.T) {
		res, err := r.Dispatch(ctx, llm.ToolCallRequest{Name: "echo", RawArguments: "{", ArgumentsErr: errors.New("arguments are not a JSON object")})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Content, "arguments are not a JSON object")
	})
}
