package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/simonyos/webpilot/internal/agent"
	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/tools"
	"github.com/simonyos/webpilot/internal/tui/components"
	"github.com/simonyos/webpilot/internal/tui/theme"
)

// Message types for Bubble Tea
type stateMsg struct {
	state agent.State
	turn  int
}

type toolUseMsg struct {
	call llm.ToolCallRequest
}

type toolResultMsg struct {
	call   llm.ToolCallRequest
	result tools.ToolResult
}

type doneMsg struct {
	outcome *agent.Outcome
	err     error
}

// Model is the TUI model of one running session
type Model struct {
	activity *components.Activity
	status   *components.Status
	spinner  spinner.Model
	cancel   context.CancelFunc

	// State
	width    int
	state    agent.State
	stopping bool
	done     bool
	outcome  *agent.Outcome
	err      error
	answer   string // Rendered final answer
}

// New creates a new TUI model. cancel stops the running session.
func New(cancel context.CancelFunc, backend, model string, maxTurns int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Current.Primary)

	return Model{
		activity: components.NewActivity(80),
		status:   components.NewStatus(80, backend, model, maxTurns),
		spinner:  sp,
		cancel:   cancel,
		width:    80,
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			if !m.stopping && !m.done {
				m.stopping = true
				m.activity.Notice("Stopping...", false)
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.activity.SetWidth(msg.Width)
		m.status.SetWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.state
		m.status.SetState(stateLabel(msg.state), msg.turn)
		return m, nil

	case toolUseMsg:
		m.activity.Start(msg.call.ID, msg.call.Name, agent.FormatArgs(msg.call))
		return m, nil

	case toolResultMsg:
		m.activity.Finish(msg.call.ID, msg.result.Content, msg.result.IsError)
		return m, nil

	case doneMsg:
		m.done = true
		m.outcome = msg.outcome
		m.err = msg.err
		if msg.outcome != nil && msg.outcome.Status == agent.StatusAnswered {
			m.answer = RenderMarkdown(msg.outcome.Answer, m.width)
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	t := theme.Current
	view := m.activity.View()

	if !m.done {
		label := lipgloss.NewStyle().Foreground(t.Primary).Render(stateLabel(m.state) + "...")
		return view + m.spinner.View() + " " + label + "\n" + m.status.View() + "\n"
	}

	if m.answer != "" {
		return view + "\n" + m.answer + "\n"
	}
	return view
}

// Outcome returns the session outcome once the model is done
func (m Model) Outcome() (*agent.Outcome, error) {
	return m.outcome, m.err
}

func stateLabel(s agent.State) string {
	switch s {
	case agent.StateAwaitingModel:
		return "Waiting for the model"
	case agent.StateInspectingResponse:
		return "Reading the response"
	case agent.StateDispatchingTool:
		return "Running tools"
	case agent.StateDone:
		return "Done"
	}
	return s.String()
}

// programHandler forwards agent events into the program's message loop
type programHandler struct {
	p *tea.Program
}

func (h *programHandler) OnState(state agent.State, turn int) {
	h.p.Send(stateMsg{state: state, turn: turn})
}

func (h *programHandler) OnToolUse(call llm.ToolCallRequest) {
	h.p.Send(toolUseMsg{call: call})
}

func (h *programHandler) OnToolResult(call llm.ToolCallRequest, result tools.ToolResult) {
	h.p.Send(toolResultMsg{call: call, result: result})
}

// SessionOptions configures RunSession
type SessionOptions struct {
	Backend  string
	Model    string
	MaxTurns int
	Input    io.Reader
	Output   io.Writer
}

// RunSession runs fn in the background while rendering its progress. The
// answer is rendered as part of the final frame, so callers should not print
// it again.
func RunSession(ctx context.Context, opts SessionOptions, fn func(ctx context.Context, h agent.EventHandler) (*agent.Outcome, error)) (*agent.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	p := tea.NewProgram(New(cancel, opts.Backend, opts.Model, opts.MaxTurns), progOpts...)
	go func() {
		out, err := fn(ctx, &programHandler{p: p})
		p.Send(doneMsg{outcome: out, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui failed: %w", err)
	}
	return final.(Model).Outcome()
}
