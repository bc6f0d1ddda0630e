package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Tool is the interface all tools must implement
type Tool interface {
	// Definition returns the structured tool definition
	Definition() ToolSpec

	// Execute runs the tool with the given arguments. It never fails: errors
	// are reported as text in the returned string.
	Execute(ctx context.Context, args map[string]any) string

	// Validate checks if the arguments are valid
	Validate(args map[string]any) error
}

// BaseTool provides common functionality for tools
type BaseTool struct {
	Def ToolSpec
}

// Definition returns the tool definition
func (b *BaseTool) Definition() ToolSpec {
	return b.Def
}

// Validate checks required fields are present
func (b *BaseTool) Validate(args map[string]any) error {
	if b.Def.Parameters == nil {
		return nil
	}
	for _, required := range b.Def.Parameters.Required {
		if v, ok := args[required]; !ok || v == nil {
			return fmt.Errorf("missing required argument: %s", required)
		}
	}
	return nil
}

// Options configures the built-in tools.
type Options struct {
	Logger       *slog.Logger
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// decodeArgs decodes model supplied arguments into a typed struct.
func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid argument types: %w", err)
	}
	return nil
}
