// Package store persists session transcripts to sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/simonyos/webpilot/internal/conversation"
	"github.com/simonyos/webpilot/internal/llm"
)

// ErrNotFound is returned when no session has the requested id.
var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	backend    TEXT NOT NULL,
	model      TEXT NOT NULL,
	protocol   TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS messages (
	session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	tool_call_id TEXT NOT NULL DEFAULT '',
	calls        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, seq)
);
`

// Session is one recorded run.
type Session struct {
	ID        string
	CreatedAt int64
	Backend   string
	Model     string
	Protocol  string
	Prompt    string
	Status    string
	Messages  int
}

// Store manages session history persisted to sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// wait up to 10 seconds for locks to clear
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateSession starts a new session record.
func (s *Store) CreateSession(ctx context.Context, backend, model, protocol, prompt string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().Unix(),
		Backend:   backend,
		Model:     model,
		Protocol:  protocol,
		Prompt:    prompt,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, created_at, backend, model, protocol, prompt) VALUES(?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.CreatedAt, sess.Backend, sess.Model, sess.Protocol, sess.Prompt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Finish records how a session ended.
func (s *Store) Finish(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// calls holds the call fields of an assistant message.
type calls struct {
	ToolCalls    []llm.OpenAIToolCall `json:"tool_calls,omitempty"`
	FunctionCall *llm.FunctionCall    `json:"function_call,omitempty"`
}

// Record stores msg at position seq of session id.
func (s *Store) Record(ctx context.Context, id string, seq int, msg llm.Message) error {
	var encoded string
	if msg.HasCalls() {
		data, err := json.Marshal(calls{ToolCalls: msg.ToolCalls, FunctionCall: msg.FunctionCall})
		if err != nil {
			return fmt.Errorf("failed to encode calls: %w", err)
		}
		encoded = string(data)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(session_id, seq, role, content, name, tool_call_id, calls) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		id, seq, msg.Role, msg.Content, msg.Name, msg.ToolCallID, encoded)
	if err != nil {
		return fmt.Errorf("failed to record message %d: %w", seq, err)
	}
	return nil
}

// Recorder returns a sink that records a log's messages under session id.
func (s *Store) Recorder(id string) conversation.Sink {
	return &recorder{store: s, id: id}
}

type recorder struct {
	store *Store
	id    string
}

func (r *recorder) Record(ctx context.Context, seq int, msg llm.Message) error {
	return r.store.Record(ctx, r.id, seq, msg)
}

// List returns the most recent sessions first. A limit of zero lists all.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT s.id, s.created_at, s.backend, s.model, s.protocol, s.prompt, s.status,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s ORDER BY s.created_at DESC, s.rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.Backend, &sess.Model, &sess.Protocol, &sess.Prompt, &sess.Status, &sess.Messages); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Get returns the session with id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	var sess Session
	row := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.created_at, s.backend, s.model, s.protocol, s.prompt, s.status,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id)
	if err := row.Scan(&sess.ID, &sess.CreatedAt, &sess.Backend, &sess.Model, &sess.Protocol, &sess.Prompt, &sess.Status, &sess.Messages); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Session{}, err
	}
	return sess, nil
}

// Messages returns the recorded log of session id in order.
func (s *Store) Messages(ctx context.Context, id string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, name, tool_call_id, calls FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()

	var msgs []llm.Message
	for rows.Next() {
		var msg llm.Message
		var encoded string
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Name, &msg.ToolCallID, &encoded); err != nil {
			return nil, err
		}
		if encoded != "" {
			var c calls
			if err := json.Unmarshal([]byte(encoded), &c); err != nil {
				return nil, fmt.Errorf("failed to decode calls: %w", err)
			}
			msg.ToolCalls = c.ToolCalls
			msg.FunctionCall = c.FunctionCall
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
