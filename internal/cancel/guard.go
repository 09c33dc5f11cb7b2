package cancel

import (
	"context"
	"log/slog"
	"sync"
)

// Guard enforces at most one outstanding long operation per session.
// It is safe for concurrent use: the session reader cancels through it
// while the dispatcher begins and ends operations.
type Guard struct {
	mu      sync.Mutex
	current *Token
	logger  *slog.Logger
}

// NewGuard creates a guard. A nil logger uses slog.Default.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger.With(slog.String("component", "cancel"))}
}

// Begin starts a long operation. Any token still pending from a previous
// operation is cancelled first.
func (g *Guard) Begin(parent context.Context) *Token {
	t := NewToken(parent)

	g.mu.Lock()
	prev := g.current
	g.current = t
	g.mu.Unlock()

	if prev != nil && prev.Cancel() {
		g.logger.Info("superseded pending operation",
			slog.String("cancelled", prev.ID()),
			slog.String("token", t.ID()))
	}
	return t
}

// End marks the operation of t complete.
func (g *Guard) End(t *Token) {
	t.finish()

	g.mu.Lock()
	if g.current == t {
		g.current = nil
	}
	g.mu.Unlock()
}

// CancelPending cancels the outstanding operation, if any, and reports
// whether there was one to cancel.
func (g *Guard) CancelPending() bool {
	g.mu.Lock()
	t := g.current
	g.mu.Unlock()

	if t == nil || !t.Cancel() {
		return false
	}
	g.logger.Info("cancellation requested", slog.String("token", t.ID()))
	return true
}

// Pending returns the outstanding token, or nil.
func (g *Guard) Pending() *Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}
