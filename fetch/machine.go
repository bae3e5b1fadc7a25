// Package fetch tracks the loading lifecycle of one subagent for a live view.
//
// A Machine is bound to a (session, agent) pair at a time. Observing a new
// pair starts a fetch; observing the same pair again does nothing. Every
// request is tagged with a sequence number, and a completion whose tag is no
// longer current is dropped, so a slow response for a pair the view has moved
// away from is never shown.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/core"
)

// Status is the lifecycle phase of a Machine.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Key identifies the subagent a Machine is showing.
type Key struct {
	SessionID string
	AgentID   string
}

func (k Key) valid() bool { return k.SessionID != "" && k.AgentID != "" }

// State is a snapshot of a Machine. Subagent is set only in Success and Err
// only in Failure; during a refetch the previous Subagent stays visible.
type State struct {
	Key      Key
	Status   Status
	Subagent *core.SubagentInvocation
	Err      error

	version uint64
}

// Loading reports whether a request is outstanding.
func (s State) Loading() bool { return s.Status == Loading }

// Fetcher loads one subagent. *subagent.Resolver implements it.
type Fetcher interface {
	Fetch(ctx context.Context, sessionID, agentID string) (*core.SubagentInvocation, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, sessionID, agentID string) (*core.SubagentInvocation, error)

func (f FetcherFunc) Fetch(ctx context.Context, sessionID, agentID string) (*core.SubagentInvocation, error) {
	return f(ctx, sessionID, agentID)
}

// Option configures a Machine.
type Option func(*Machine)

// WithTimeout bounds each fetch. A timeout ends in Failure like any other
// error.
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithOnChange registers fn to receive every state change. Calls are
// serialized and a snapshot older than one already delivered is skipped.
// fn runs on the goroutine that caused the change, so it must not block
// for long or call back into the Machine.
func WithOnChange(fn func(State)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// Machine is safe for concurrent use.
type Machine struct {
	fetcher  Fetcher
	timeout  time.Duration
	onChange func(State)

	mu      sync.Mutex
	state   State
	seq     uint64             // tag of the current request
	cancel  context.CancelFunc // cancels the current request
	settled chan struct{}      // closed when the current request is settled or superseded
	closed  bool

	notifyMu  sync.Mutex
	delivered uint64

	runs sync.WaitGroup // request goroutines, abandoned ones included
}

// New returns an Idle Machine.
func New(f Fetcher, opts ...Option) *Machine {
	m := &Machine{fetcher: f}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe points the Machine at a pair. A pair equal to the current one is a
// no-op. A different pair drops the current data and error, abandons any
// outstanding request and issues one fetch. An empty id returns the Machine
// to Idle.
func (m *Machine) Observe(sessionID, agentID string) {
	key := Key{SessionID: sessionID, AgentID: agentID}

	m.mu.Lock()
	if m.closed || (key == m.state.Key && (m.state.Status != Idle || !key.valid())) {
		m.mu.Unlock()
		return
	}
	m.abortLocked()
	m.state = State{Key: key, version: m.state.version}
	if key.valid() {
		m.startLocked()
	} else {
		m.state.version++
	}
	st := m.state
	m.mu.Unlock()

	m.notify(st)
}

// Refetch issues a new fetch for the current pair, superseding any
// outstanding one. Each call issues exactly one request. It does nothing
// while Idle.
func (m *Machine) Refetch() {
	m.mu.Lock()
	if m.closed || !m.state.Key.valid() {
		m.mu.Unlock()
		return
	}
	m.abortLocked()
	m.startLocked()
	st := m.state
	m.mu.Unlock()

	m.notify(st)
}

// Wait blocks until no request is outstanding for the current pair, then
// returns the state. It returns early with ctx's error.
func (m *Machine) Wait(ctx context.Context) (State, error) {
	for {
		m.mu.Lock()
		st, settled := m.state, m.settled
		m.mu.Unlock()
		if settled == nil {
			return st, nil
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close abandons any outstanding request. Later calls to Observe and Refetch
// do nothing.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.abortLocked()
}

// abortLocked invalidates the current request so its completion is dropped.
func (m *Machine) abortLocked() {
	m.seq++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.settled != nil {
		close(m.settled)
		m.settled = nil
	}
}

// startLocked moves to Loading and launches a request tagged with the
// current sequence number.
func (m *Machine) startLocked() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	seq := m.seq
	key := m.state.Key
	m.cancel = cancel
	m.settled = make(chan struct{})

	m.state.Status = Loading
	m.state.Err = nil
	m.state.version++

	m.runs.Add(1)
	go m.run(ctx, cancel, key, seq)
}

func (m *Machine) run(ctx context.Context, cancel context.CancelFunc, key Key, seq uint64) {
	defer m.runs.Done()
	defer cancel()
	inv, err := m.fetcher.Fetch(ctx, key.SessionID, key.AgentID)
	if err == nil && inv == nil {
		err = fmt.Errorf("subagent %s: %w: no invocation returned", key.AgentID, core.ErrMalformedResponse)
	}

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		log.Debug("dropping stale subagent response",
			"session_id", key.SessionID, "agent_id", key.AgentID, "canceled", errors.Is(err, context.Canceled))
		return
	}
	if err != nil {
		m.state.Status = Failure
		m.state.Err = err
		m.state.Subagent = nil
	} else {
		m.state.Status = Success
		m.state.Err = nil
		m.state.Subagent = inv
	}
	m.state.version++
	m.cancel = nil
	close(m.settled)
	m.settled = nil
	st := m.state
	m.mu.Unlock()

	m.notify(st)
}

func (m *Machine) notify(st State) {
	if m.onChange == nil {
		return
	}
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if st.version <= m.delivered {
		return
	}
	m.delivered = st.version
	m.onChange(st)
}
