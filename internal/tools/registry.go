package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/simonyos/webpilot/internal/llm"
)

// ErrUnknownTool is returned by Dispatch when no tool has the requested name.
var ErrUnknownTool = errors.New("unknown function")

// Registry manages tool registration and execution. Definitions are emitted in
// registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// DefaultRegistry returns a registry holding open_website and click.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.MustRegister(NewFetchTool(opts))
	r.MustRegister(NewClickTool(opts))
	return r
}

// Register adds a tool to the registry. Names must be non-empty and unique.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for statically known tools.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// List returns all registered tool definitions
func (r *Registry) List() []ToolSpec {
	defs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Functions returns tool definitions in the legacy "functions" format
func (r *Registry) Functions() []llm.OpenAIFunction {
	result := make([]llm.OpenAIFunction, 0, len(r.order))
	for _, def := range r.List() {
		result = append(result, llm.OpenAIFunction{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  jsonSchemaToMap(def.Parameters),
		})
	}
	return result
}

// Tools returns tool definitions wrapped in the {type:"function"} envelope
func (r *Registry) Tools() []llm.OpenAITool {
	fns := r.Functions()
	result := make([]llm.OpenAITool, 0, len(fns))
	for _, fn := range fns {
		result = append(result, llm.OpenAITool{Type: "function", Function: fn})
	}
	return result
}

// SpecFromFunction decodes an emitted definition back into a ToolSpec.
func SpecFromFunction(fn llm.OpenAIFunction) (ToolSpec, error) {
	spec := ToolSpec{Name: fn.Name, Description: fn.Description}
	if fn.Parameters == nil {
		return spec, nil
	}
	var params JSONSchema
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &params,
	})
	if err != nil {
		return ToolSpec{}, err
	}
	if err := decoder.Decode(fn.Parameters); err != nil {
		return ToolSpec{}, fmt.Errorf("decode parameters of %s: %w", fn.Name, err)
	}
	spec.Parameters = &params
	return spec, nil
}

// jsonSchemaToMap converts JSONSchema to map for the API.
//
// Only the schema features used by the built-in tools are handled: no items,
// additionalProperties, combinators, $ref or numeric/string constraints.
func jsonSchemaToMap(schema *JSONSchema) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}

	result := map[string]interface{}{
		"type": schema.Type,
	}

	if schema.Description != "" {
		result["description"] = schema.Description
	}

	if schema.Example != "" {
		result["example_value"] = schema.Example
	}

	if len(schema.Properties) > 0 {
		props := make(map[string]interface{})
		for name, prop := range schema.Properties {
			props[name] = jsonSchemaToMap(prop)
		}
		result["properties"] = props
	}

	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	}

	if len(schema.Enum) > 0 {
		result["enum"] = schema.Enum
	}

	return result
}

// Dispatch runs the tool named by call. An unknown name is the only error:
// argument problems are returned as result content so the model can correct
// itself.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCallRequest) (ToolResult, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return ToolResult{ToolCallID: call.ID}, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	if call.ArgumentsErr != nil {
		return usageError(call, call.ArgumentsErr), nil
	}
	if err := tool.Validate(call.Arguments); err != nil {
		return usageError(call, err), nil
	}

	return ToolResult{
		ToolCallID: call.ID,
		Content:    tool.Execute(ctx, call.Arguments),
	}, nil
}

func usageError(call llm.ToolCallRequest, err error) ToolResult {
	return ToolResult{
		ToolCallID: call.ID,
		Content:    fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err),
		IsError:    true,
	}
}

var _ llm.Catalog = (*Registry)(nil)
