package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonyos/webpilot/internal/agent"
	"github.com/simonyos/webpilot/internal/config"
	"github.com/simonyos/webpilot/internal/conversation"
	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/logging"
	"github.com/simonyos/webpilot/internal/prompts"
	"github.com/simonyos/webpilot/internal/store"
	"github.com/simonyos/webpilot/internal/tools"
	"github.com/simonyos/webpilot/internal/transcript"
	"github.com/simonyos/webpilot/internal/tui"
)

const version = "0.1.0"

var opts runOptions

var rootCmd = &cobra.Command{
	Use:   "webpilot [prompt]",
	Short: "Webpage navigation assistant driven by an LLM",
	Long: `webpilot sends your request to a chat completion model and lets it browse
with two tools: open_website fetches a page, click presses a button on it.
The model decides which tool to call; webpilot runs it and feeds the result
back until the model answers.

Supported backends:
  openai   - OpenAI API (requires OPENAI_API_KEY)
  xai      - xAI API (requires XAI_API_KEY)

Without a prompt, webpilot asks for the careers page of the xAI website.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	s, err := resolveSettings(cfg, opts)
	if err != nil {
		return err
	}
	logger := logging.New(s.logLevel, cmd.ErrOrStderr())

	sc := NewSignalContext(cmd.Context())
	defer sc.Cancel()

	protocol, err := llm.ProtocolByName(s.protocol)
	if err != nil {
		return err
	}
	client := llm.NewClient(s.backend, s.apiKey, s.model)
	client.BaseURL = s.baseURL
	registry := tools.DefaultRegistry(tools.Options{
		Logger:       logger,
		FetchTimeout: s.fetchTimeout,
		UserAgent:    "webpilot/" + version,
	})

	userPrompt := prompts.User(args)
	logOpts := []conversation.Option{conversation.WithLogger(logger)}

	var history *store.Store
	var session store.Session
	if !opts.noHistory {
		history, session, err = openHistory(sc, s, userPrompt, logger)
		if err == nil {
			defer history.Close()
			logOpts = append(logOpts, conversation.WithSink(history.Recorder(session.ID)))
		}
	}

	log := conversation.Start(prompts.System(opts.system), userPrompt, logOpts...)
	logger.Debug("session started", "backend", s.backend.Name, "model", s.model, "protocol", s.protocol, "max_turns", s.maxTurns)

	run := func(ctx context.Context, h agent.EventHandler) (*agent.Outcome, error) {
		a := agent.New(client, protocol, registry,
			agent.WithMaxTurns(s.maxTurns),
			agent.WithLogger(logger),
			agent.WithEventHandler(h),
		)
		return a.Run(ctx, log)
	}

	interactive := !opts.plain && tui.IsTerminal(os.Stdout) && tui.IsTerminal(os.Stdin)
	var outcome *agent.Outcome
	var runErr error
	if interactive {
		outcome, runErr = tui.RunSession(sc, tui.SessionOptions{
			Backend:  s.backend.Name,
			Model:    s.model,
			MaxTurns: s.maxTurns,
		}, run)
	} else {
		outcome, runErr = run(sc, tui.NewPlain(cmd.ErrOrStderr()))
	}

	if outcome != nil && outcome.Status == agent.StatusCancelled {
		if sig := sc.Signal(); sig != nil {
			logger.Info("session interrupted", "signal", sig.String(), "turns", outcome.Turns)
		}
	}

	if outcome != nil {
		// Record even when the session was interrupted
		if history != nil {
			if err := history.Finish(context.Background(), session.ID, string(outcome.Status)); err != nil {
				logger.Warn("failed to finish session record", "err", err)
			}
		}
		if opts.transcript != "" {
			if err := transcript.WriteFile(opts.transcript, transcript.Transcript{
				Session:  session.ID,
				Backend:  s.backend.Name,
				Model:    s.model,
				Protocol: s.protocol,
				Status:   string(outcome.Status),
				Turns:    outcome.Turns,
				Answer:   outcome.Answer,
				Messages: log.Messages(),
			}); err != nil {
				logger.Warn("failed to write transcript", "path", opts.transcript, "err", err)
			}
		}
	}

	return report(cmd.OutOrStdout(), outcome, runErr, interactive)
}

// openHistory opens the history database and starts a session record.
// Failures are logged and the session runs without history.
func openHistory(ctx context.Context, s settings, prompt string, logger *slog.Logger) (*store.Store, store.Session, error) {
	history, err := store.Open(s.historyDB)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		return nil, store.Session{}, err
	}
	session, err := history.CreateSession(ctx, s.backend.Name, s.model, s.protocol, prompt)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		history.Close()
		return nil, store.Session{}, err
	}
	return history, session, nil
}

// report prints the outcome of a session. Only turn-limit and failed sessions
// are returned as errors; a user interrupt exits cleanly.
func report(w io.Writer, outcome *agent.Outcome, runErr error, interactive bool) error {
	if outcome == nil {
		return runErr
	}

	switch outcome.Status {
	case agent.StatusAnswered:
		if !interactive {
			fmt.Fprintln(w, renderAnswer(w, outcome.Answer))
		}
		return nil
	case agent.StatusNoResponse:
		fmt.Fprintln(w, agent.NoResponse)
		return nil
	case agent.StatusCancelled:
		fmt.Fprintln(w, agent.Terminated)
		return nil
	}

	if runErr == nil {
		runErr = errors.New(string(outcome.Status))
	}
	return runErr
}

// renderAnswer renders markdown when w is a terminal
func renderAnswer(w io.Writer, answer string) string {
	if f, ok := w.(*os.File); ok && tui.IsTerminal(f) {
		return tui.RenderMarkdown(answer, tui.Width(f))
	}
	return answer
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.backend, "backend", "b", "", "Completion backend (openai, xai)")
	flags.StringVarP(&opts.model, "model", "m", "", "Model to use (backend-specific)")
	flags.StringVarP(&opts.protocol, "protocol", "p", "", "Function calling protocol (functions, tools)")
	flags.IntVar(&opts.maxTurns, "max-turns", 0, "Maximum completion calls per session (default 10)")
	flags.StringVar(&opts.system, "system", "", `System prompt ("-" for none)`)
	flags.BoolVar(&opts.plain, "plain", false, "Print plain lines instead of the interactive view")
	flags.StringVar(&opts.transcript, "transcript", "", "Write the session transcript as YAML to this file")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record the session in the history database")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file with API keys")
	persistent.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
