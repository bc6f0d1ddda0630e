package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simonyos/webpilot/internal/conversation"
	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/tools"
)

// User-facing outcome strings.
const (
	NoResponse = "No response from the assistant."
	Terminated = "Conversation terminated by user."
)

// DefaultMaxTurns bounds the number of completion calls in one run.
const DefaultMaxTurns = 10

// ErrTurnLimit is returned when the model keeps requesting tools past the
// turn ceiling.
var ErrTurnLimit = errors.New("exceeded turn limit")

// State is a step of the orchestration loop.
type State int

const (
	StateAwaitingModel State = iota
	StateInspectingResponse
	StateDispatchingTool
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateInspectingResponse:
		return "inspecting_response"
	case StateDispatchingTool:
		return "dispatching_tool"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status says why a run ended.
type Status string

const (
	StatusAnswered   Status = "answered"
	StatusNoResponse Status = "no_response"
	StatusTurnLimit  Status = "turn_limit"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// ToolExecution records a single tool call and its result
type ToolExecution struct {
	ID      string
	Name    string
	Args    string // Formatted args string for display
	Result  string
	IsError bool
}

// Outcome describes how a run ended. It is returned even when Run fails.
type Outcome struct {
	Status       Status
	Answer       string   // Final answer when Status is StatusAnswered
	Turns        int      // Completion calls issued
	UnknownTools []string // Requested names that matched no tool, per turn
	Executions   []ToolExecution
}

// EventHandler receives callbacks during agent execution
type EventHandler interface {
	OnState(state State, turn int)
	OnToolUse(call llm.ToolCallRequest)
	OnToolResult(call llm.ToolCallRequest, result tools.ToolResult)
}

// Agent orchestrates the completion endpoint and the tools
type Agent struct {
	provider llm.Provider
	protocol llm.Protocol
	registry *tools.Registry
	maxTurns int
	handler  EventHandler
	logger   *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxTurns sets the turn ceiling. Values below 1 keep the default.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithEventHandler sets the callback handler for agent events
func WithEventHandler(h EventHandler) Option {
	return func(a *Agent) {
		a.handler = h
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an agent speaking protocol to provider with the tools in registry
func New(provider llm.Provider, protocol llm.Protocol, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		protocol: protocol,
		registry: registry,
		maxTurns: DefaultMaxTurns,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxTurns returns the configured turn ceiling
func (a *Agent) MaxTurns() int {
	return a.maxTurns
}

// Run drives the conversation in log until the model answers without
// requesting a tool, or another terminal condition is reached. Messages are
// only ever appended to log; on cancellation or failure the partial log is
// left as is.
func (a *Agent) Run(ctx context.Context, log *conversation.Log) (*Outcome, error) {
	out := &Outcome{}

	for turn := 1; turn <= a.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return a.cancelled(out, turn-1, err)
		}
		out.Turns = turn

		a.enter(StateAwaitingModel, turn)
		req := a.protocol.BuildRequest(a.provider.ModelName(), log.Messages(), a.registry)
		resp, err := a.provider.Complete(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.cancelled(out, turn, ctxErr)
			}
			return a.failed(out, turn, fmt.Errorf("completion request failed: %w", err))
		}

		a.enter(StateInspectingResponse, turn)
		if len(resp.Choices) == 0 {
			a.logger.Warn(NoResponse, "turn", turn)
			out.Status = StatusNoResponse
			a.enter(StateDone, turn)
			return out, nil
		}

		msg := resp.Choices[0].Message
		calls := a.protocol.ParseToolCallRequests(msg)
		if len(calls) == 0 {
			answer := msg.Text()
			if err := log.Append(ctx, llm.Message{Role: llm.RoleAssistant, Content: answer}); err != nil {
				return a.failed(out, turn, err)
			}
			out.Status = StatusAnswered
			out.Answer = answer
			a.enter(StateDone, turn)
			return out, nil
		}

		a.enter(StateDispatchingTool, turn)
		if name, ok := a.firstUnknown(calls); !ok {
			// Nothing is appended; the model is asked again with the same log.
			a.logger.Error("Unknown function: "+name, "turn", turn)
			out.UnknownTools = append(out.UnknownTools, name)
			continue
		}

		if err := log.Append(ctx, a.protocol.AssistantMessage(msg)); err != nil {
			return a.failed(out, turn, err)
		}
		for _, call := range calls {
			exec, err := a.dispatch(ctx, log, call)
			if err != nil {
				return a.failed(out, turn, err)
			}
			out.Executions = append(out.Executions, exec)
		}
	}

	a.logger.Warn("turn limit reached", "max_turns", a.maxTurns)
	out.Status = StatusTurnLimit
	a.enter(StateDone, out.Turns)
	return out, fmt.Errorf("%w: %d turns", ErrTurnLimit, a.maxTurns)
}

// dispatch executes one call and appends its result before returning.
func (a *Agent) dispatch(ctx context.Context, log *conversation.Log, call llm.ToolCallRequest) (ToolExecution, error) {
	if a.handler != nil {
		a.handler.OnToolUse(call)
	}

	result, err := a.registry.Dispatch(ctx, call)
	if err != nil {
		return ToolExecution{}, err
	}
	if result.IsError {
		a.logger.Warn("invalid tool call", "name", call.Name, "id", call.ID, "problem", result.Content)
	}

	if err := log.Append(ctx, a.protocol.ResultMessage(call, result.Content)); err != nil {
		return ToolExecution{}, err
	}

	if a.handler != nil {
		a.handler.OnToolResult(call, result)
	}

	return ToolExecution{
		ID:      call.ID,
		Name:    call.Name,
		Args:    FormatArgs(call),
		Result:  result.Content,
		IsError: result.IsError,
	}, nil
}

// firstUnknown checks every requested name before anything is appended, so
// an unknown tool never leaves an unanswered call in the log.
func (a *Agent) firstUnknown(calls []llm.ToolCallRequest) (string, bool) {
	for _, call := range calls {
		if !a.registry.Has(call.Name) {
			return call.Name, false
		}
	}
	return "", true
}

func (a *Agent) cancelled(out *Outcome, turn int, err error) (*Outcome, error) {
	a.logger.Info(Terminated, "turn", turn)
	out.Status = StatusCancelled
	a.enter(StateDone, turn)
	return out, fmt.Errorf("session cancelled: %w", err)
}

func (a *Agent) failed(out *Outcome, turn int, err error) (*Outcome, error) {
	out.Status = StatusFailed
	a.enter(StateDone, turn)
	return out, err
}

func (a *Agent) enter(state State, turn int) {
	a.logger.Debug("state", "state", state.String(), "turn", turn)
	if a.handler != nil {
		a.handler.OnState(state, turn)
	}
}

// FormatArgs creates a display string for tool arguments
func FormatArgs(call llm.ToolCallRequest) string {
	switch call.Name {
	case "open_website":
		if url, ok := call.Arguments["url"].(string); ok {
			return url
		}
	case "click":
		if button, ok := call.Arguments["button"].(string); ok {
			return button
		}
	}
	if call.ArgumentsErr != nil {
		return call.RawArguments
	}
	// Fallback: JSON representation
	bytes, _ := json.Marshal(call.Arguments)
	return string(bytes)
}
