package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonyos/webpilot/internal/config"
)

var configGetRaw bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage webpilot configuration",
	Long: `Manage webpilot configuration including API keys and defaults.

Examples:
  webpilot config                      # Show current config
  webpilot config set xai <key>        # Set xAI API key
  webpilot config set backend xai      # Set default backend
  webpilot config delete openai        # Remove OpenAI API key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(opts.envFile)
		if err != nil {
			return err
		}
		showConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  openai_api_key (openai)  - OpenAI API key
  xai_api_key (xai)        - xAI API key
  backend (provider)       - Default backend (openai, xai)
  model                    - Default model
  protocol                 - Function calling protocol (functions, tools)
  base_url                 - Override the backend base URL
  max_turns                - Maximum completion calls per session
  fetch_timeout            - open_website timeout, e.g. 10s
  log_level                - debug, info, warn, error
  history_db               - Path of the history database`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := args[1]

		if err := config.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s successfully.\n", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		out := cmd.OutOrStdout()

		if configGetRaw {
			value, ok, err := config.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "%s is not set in %s\n", key, config.ConfigPath())
				return nil
			}
			fmt.Fprintln(out, value)
			return nil
		}

		cfg, err := config.Load(opts.envFile)
		if err != nil {
			return err
		}
		if val, ok := config.ListKeys(cfg)[key]; ok {
			fmt.Fprintf(out, "%s: %s\n", key, val)
		} else {
			fmt.Fprintf(out, "%s is not set\n", key)
		}
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete <key>",
	Aliases: []string{"remove", "unset"},
	Short:   "Delete a configuration value",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		if err := config.Delete(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", key)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
	},
}

func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Configuration file: %s\n\n", config.ConfigPath())

	keys := config.ListKeys(cfg)
	if cfg.OpenAIKey == "" && cfg.XAIKey == "" {
		fmt.Fprintln(w, "No API keys configured.")
		fmt.Fprintln(w, "Use 'webpilot config set <key> <value>' or set OPENAI_API_KEY / XAI_API_KEY.")
		fmt.Fprintln(w)
	}

	for _, k := range config.SortedKeys(keys) {
		fmt.Fprintf(w, "  %s: %s\n", k, keys[k])
	}
	fmt.Fprintf(w, "\nKeys: %s\n", strings.Join(config.Keys, ", "))
}

func init() {
	configGetCmd.Flags().BoolVar(&configGetRaw, "raw", false, "Print the unmasked value stored in the config file")
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
