// Package sessionlog writes the per-invocation agent event log: one
// structured line each for session start, every tool action, and session end,
// correlated by agent_session_id.
package sessionlog

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithSession attaches an agent session id to ctx.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// SessionID returns the session id from ctx, or "unknown".
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// Logger emits agent session events.
type Logger struct {
	zl zerolog.Logger
}

// New wraps zl. Events carry component=agent_session.
func New(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl.With().Str("component", "agent_session").Logger()}
}

// Nop discards every event.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) SessionStart(sessionID, query string) {
	l.zl.Info().
		Str("agent_session_id", sessionID).
		Str("event", "session_start").
		Str("query", query).
		Send()
}

func (l *Logger) ToolAction(ctx context.Context, tool string, params map[string]interface{}, summary string) {
	l.zl.Info().
		Str("agent_session_id", SessionID(ctx)).
		Str("event", "tool_action").
		Str("tool", tool).
		Interface("params", params).
		Str("result_summary", summary).
		Send()
}

// SessionEnd records the terminal status. answer may be empty.
func (l *Logger) SessionEnd(sessionID, status, answer string) {
	ev := l.zl.Info().
		Str("agent_session_id", sessionID).
		Str("event", "session_end").
		Str("status", status)
	if answer != "" {
		ev = ev.Str("answer", answer)
	}
	ev.Send()
}
