package cancel

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Token.
type State int32

const (
	// StatePending means the operation is running and not cancelled.
	StatePending State = iota

	// StateCancelled means cancellation was requested.
	StateCancelled

	// StateDone means the operation finished.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCancelled:
		return "cancelled"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Token is the cancellation flag of one long operation.
// It is safe for concurrent use.
type Token struct {
	id     string
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken creates a pending token whose context derives from parent.
// Cancelling parent cancels the token.
func NewToken(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Token{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the token's unique identifier.
func (t *Token) ID() string {
	return t.id
}

// Context returns the context bound to the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Done returns a channel closed when the token is cancelled or finished.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// State returns the current state.
func (t *Token) State() State {
	return State(t.state.Load())
}

// Cancel requests cancellation. It reports whether the token was pending.
func (t *Token) Cancel() bool {
	if !t.state.CompareAndSwap(int32(StatePending), int32(StateCancelled)) {
		return false
	}
	t.cancel()
	return true
}

// IsCancellationRequested reports whether the operation should stop.
func (t *Token) IsCancellationRequested() bool {
	if t == nil {
		return false
	}
	switch t.State() {
	case StateCancelled:
		return true
	case StateDone:
		return false
	}
	if t.ctx.Err() != nil {
		t.state.CompareAndSwap(int32(StatePending), int32(StateCancelled))
		return true
	}
	return false
}

// finish marks the operation complete and releases the context.
func (t *Token) finish() {
	t.state.CompareAndSwap(int32(StatePending), int32(StateDone))
	t.cancel()
}

// Poller checks a token once every few units of work.
type Poller struct {
	token *Token
	every int
	n     int
}

// Poller returns a poller that consults the token every n calls to Tick.
// A nil token never reports cancellation.
func (t *Token) Poller(every int) *Poller {
	if every < 1 {
		every = 1
	}
	return &Poller{token: t, every: every}
}

// Tick accounts one unit of work and reports whether to stop.
func (p *Poller) Tick() bool {
	p.n++
	if p.n < p.every {
		return false
	}
	p.n = 0
	return p.token.IsCancellationRequested()
}
