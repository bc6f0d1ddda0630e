package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/tools"
)

var (
	toolsProtocolFlag string
	toolsFormatFlag   string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool definitions sent to the model",
	Long: `Print the tool definitions exactly as they are sent to the model.

Examples:
  webpilot tools                      # tools envelope as JSON
  webpilot tools --protocol functions # legacy functions envelope
  webpilot tools --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := tools.DefaultRegistry(tools.Options{})
		return printCatalog(cmd.OutOrStdout(), registry, toolsProtocolFlag, toolsFormatFlag)
	},
}

func printCatalog(w io.Writer, catalog llm.Catalog, protocol, format string) error {
	p, err := llm.ProtocolByName(protocol)
	if err != nil {
		return err
	}

	var envelope any
	switch p.Name() {
	case llm.ProtocolFunctions:
		envelope = catalog.Functions()
	default:
		envelope = catalog.Tools()
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		data, err := yaml.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		fmt.Fprint(w, string(data))
	default:
		return fmt.Errorf("unknown format %q (supported: json, yaml)", format)
	}
	return nil
}

func init() {
	toolsCmd.Flags().StringVarP(&toolsProtocolFlag, "protocol", "p", llm.ProtocolTools, "Envelope to print (functions, tools)")
	toolsCmd.Flags().StringVarP(&toolsFormatFlag, "format", "f", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(toolsCmd)
}
