// Package conversation holds the ordered, append-only message log of one
// session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simonyos/webpilot/internal/llm"
)

// ErrOrphanToolResult is returned when a tool-result message does not answer
// a call of the assistant message it follows.
var ErrOrphanToolResult = errors.New("tool result does not answer a pending call")

// Sink receives every message appended to a Log, with its position.
type Sink interface {
	Record(ctx context.Context, seq int, msg llm.Message) error
}

// Log is an append-only sequence of messages. Entries are never removed or
// reordered. A Log is owned by a single session and is not safe for
// concurrent use.
type Log struct {
	messages []llm.Message
	sink     Sink
	logger   *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithSink mirrors appended messages to s.
func WithSink(s Sink) Option {
	return func(l *Log) {
		l.sink = s
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New creates a log seeded with initial messages.
func New(initial []llm.Message, opts ...Option) *Log {
	l := &Log{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	for _, msg := range initial {
		msg = msg.Clone()
		l.messages = append(l.messages, msg)
		l.record(context.Background(), msg)
	}
	return l
}

// Start builds the usual opening of a session: a system prompt followed by
// the user's request. An empty system prompt is omitted.
func Start(systemPrompt, userPrompt string, opts ...Option) *Log {
	var initial []llm.Message
	if systemPrompt != "" {
		initial = append(initial, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	initial = append(initial, llm.Message{Role: llm.RoleUser, Content: userPrompt})
	return New(initial, opts...)
}

// Append adds msg to the end of the log. Tool-result messages are checked
// against the assistant message they answer.
func (l *Log) Append(ctx context.Context, msg llm.Message) error {
	if msg.IsToolResult() {
		if err := l.checkResult(msg); err != nil {
			return err
		}
	}
	msg = msg.Clone()
	l.messages = append(l.messages, msg)
	l.record(ctx, msg)
	return nil
}

// checkResult enforces adjacency: a function result must directly follow the
// assistant function_call with the same name, a tool result must follow the
// assistant message holding its call id (possibly after sibling results) and
// not answer the same call twice.
func (l *Log) checkResult(msg llm.Message) error {
	i := len(l.messages) - 1
	answered := map[string]bool{}
	for i >= 0 && l.messages[i].Role == llm.RoleTool && msg.Role == llm.RoleTool {
		answered[l.messages[i].ToolCallID] = true
		i--
	}
	if i < 0 || l.messages[i].Role != llm.RoleAssistant {
		return fmt.Errorf("%w: no assistant call precedes it", ErrOrphanToolResult)
	}
	prev := l.messages[i]

	switch msg.Role {
	case llm.RoleFunction:
		if i != len(l.messages)-1 || prev.FunctionCall == nil {
			return fmt.Errorf("%w: previous message has no function call", ErrOrphanToolResult)
		}
		if prev.FunctionCall.Name != msg.Name {
			return fmt.Errorf("%w: result for %q answers call to %q", ErrOrphanToolResult, msg.Name, prev.FunctionCall.Name)
		}
	case llm.RoleTool:
		if answered[msg.ToolCallID] {
			return fmt.Errorf("%w: call %q already answered", ErrOrphanToolResult, msg.ToolCallID)
		}
		for _, tc := range prev.ToolCalls {
			if tc.ID == msg.ToolCallID {
				return nil
			}
		}
		return fmt.Errorf("%w: unknown call id %q", ErrOrphanToolResult, msg.ToolCallID)
	}
	return nil
}

func (l *Log) record(ctx context.Context, msg llm.Message) {
	if l.sink == nil {
		return
	}
	seq := len(l.messages) - 1
	// A message appended after cancellation is still part of the session.
	if err := l.sink.Record(context.WithoutCancel(ctx), seq, msg); err != nil {
		l.logger.Warn("failed to record message", "seq", seq, "role", msg.Role, "err", err)
	}
}

// Messages returns a deep copy of the log.
func (l *Log) Messages() []llm.Message {
	out := make([]llm.Message, len(l.messages))
	for i, msg := range l.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Last returns the most recent message.
func (l *Log) Last() (llm.Message, bool) {
	if len(l.messages) == 0 {
		return llm.Message{}, false
	}
	return l.messages[len(l.messages)-1].Clone(), true
}
