package waiter

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tmcomm/internal/pool"
	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
)

// ExitScriptID is the script ID of the robot's unsolicited script exit notice.
const ExitScriptID = "exit"

type wait struct {
	key      string
	done     chan struct{}
	resolved bool
	result   Result
}

// Engine is the wait table. Its methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	slots  [numKinds]*wait
	logger logger.Logger

	dispatched atomic.Uint64
	matched    atomic.Uint64
	timeouts   atomic.Uint64
}

// NewEngine creates an engine without armed waits.
func NewEngine(l logger.Logger) *Engine {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Engine{logger: l}
}

// Arm registers a wait of kind for key.
//
// If kind is armed and unresolved only its key is replaced and a caller already
// awaiting it keeps waiting. Otherwise a fresh wait replaces whatever the slot held.
func (e *Engine) Arm(kind Kind, key string) {
	if !kind.valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if w := e.slots[kind]; w != nil && !w.resolved {
		e.logger.Debug("wait re-armed", "kind", kind, "old_key", w.key, "new_key", key)
		w.key = key
		return
	}

	e.slots[kind] = &wait{key: key, done: make(chan struct{})}
}

// IsArmed reports whether kind holds an unresolved wait.
func (e *Engine) IsArmed(kind Kind) bool {
	if !kind.valid() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.slots[kind]

	return w != nil && !w.resolved
}

// MatchKey returns the key of the armed wait of kind, or "" when kind isn't armed.
func (e *Engine) MatchKey(kind Kind) string {
	if !kind.valid() {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if w := e.slots[kind]; w != nil && !w.resolved {
		return w.key
	}

	return ""
}

// Await waits until the wait of kind is resolved, the timeout elapses or ctx is done.
// A timeout <= 0 waits without deadline.
//
// The wait is consumed: the slot is empty when Await returns. Awaiting a kind that
// isn't armed returns Timeout immediately.
func (e *Engine) Await(ctx context.Context, kind Kind, timeout time.Duration) Result {
	if !kind.valid() {
		return Result{Kind: kind, Outcome: Timeout}
	}

	e.mu.Lock()
	w := e.slots[kind]
	e.mu.Unlock()

	if w == nil {
		return Result{Kind: kind, Outcome: Timeout}
	}

	deadline := pool.NewDeadline(timeout)
	defer deadline.Release()

	select {
	case <-w.done:
	case <-deadline.C():
		e.expire(kind, w, Timeout)
	case <-ctx.Done():
		e.expire(kind, w, Cancelled)
	}

	e.mu.Lock()
	if e.slots[kind] == w {
		e.slots[kind] = nil
	}
	result := w.result
	e.mu.Unlock()

	return result
}

// expire resolves w with outcome unless a frame resolved it first.
func (e *Engine) expire(kind Kind, w *wait, outcome Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if w.resolved {
		return
	}

	if outcome == Timeout {
		e.timeouts.Add(1)
	}
	e.logger.Debug("wait expired", "kind", kind, "key", w.key, "outcome", outcome)
	e.resolveLocked(kind, w, outcome, "")
}

// Cancel resolves an armed wait of kind with Cancelled and empties the slot.
func (e *Engine) Cancel(kind Kind) {
	if !kind.valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.slots[kind]
	if w == nil {
		return
	}

	if !w.resolved {
		e.resolveLocked(kind, w, Cancelled, "")
	}
	e.slots[kind] = nil
}

// Terminate resolves the armed Acknowledge and QueueTagReached waits with Terminated.
func (e *Engine) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failLocked(Terminated, Acknowledge, QueueTagReached)
}

// FailAll resolves every armed wait with outcome, typically Disconnected.
func (e *Engine) FailAll(outcome Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failLocked(outcome, Acknowledge, QueueTagReached, ComputedValueReady, StatusReply, ScriptReentry)
}

func (e *Engine) failLocked(outcome Outcome, kinds ...Kind) {
	for _, kind := range kinds {
		if w := e.slots[kind]; w != nil && !w.resolved {
			e.resolveLocked(kind, w, outcome, "")
		}
	}
}

// Dispatch applies one decoded listen node frame to the armed waits and reports
// whether it resolved or terminated anything. It never blocks.
//
// The rules are evaluated in order and the first match wins:
//  1. script ID "exit" terminates Acknowledge and QueueTagReached
//  2. Acknowledge: script ID equals the key and the payload starts with "OK"
//  3. ScriptReentry: the payload starts with the key (the listen node name)
//  4. StatusReply, TMSTA frames only: script ID equals the key
//  5. ComputedValueReady: script ID equals the key
//  6. QueueTagReached: script ID equals the key and the payload starts with it
//
// CPERR frames never resolve a wait.
func (e *Engine) Dispatch(f *listennode.Frame) bool {
	e.dispatched.Add(1)

	if f.Header() == listennode.CommError {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, payload := f.ScriptID(), f.Payload()

	if id == ExitScriptID {
		e.logger.Debug("script exit notice", "payload", payload)
		e.failLocked(Terminated, Acknowledge, QueueTagReached)
		e.matched.Add(1)

		return true
	}

	if w := e.armedLocked(Acknowledge); w != nil && id == w.key && strings.HasPrefix(payload, "OK") {
		return e.matchLocked(Acknowledge, w, payload)
	}

	if w := e.armedLocked(ScriptReentry); w != nil && strings.HasPrefix(payload, w.key) {
		return e.matchLocked(ScriptReentry, w, payload)
	}

	if f.Header() == listennode.StatusQuery {
		if w := e.armedLocked(StatusReply); w != nil && id == w.key {
			return e.matchLocked(StatusReply, w, payload)
		}
	}

	if w := e.armedLocked(ComputedValueReady); w != nil && id == w.key {
		return e.matchLocked(ComputedValueReady, w, payload)
	}

	if w := e.armedLocked(QueueTagReached); w != nil && id == w.key && strings.HasPrefix(payload, w.key) {
		return e.matchLocked(QueueTagReached, w, payload)
	}

	return false
}

func (e *Engine) armedLocked(kind Kind) *wait {
	if w := e.slots[kind]; w != nil && !w.resolved {
		return w
	}
	return nil
}

func (e *Engine) matchLocked(kind Kind, w *wait, payload string) bool {
	e.matched.Add(1)
	e.resolveLocked(kind, w, Resolved, payload)

	return true
}

func (e *Engine) resolveLocked(kind Kind, w *wait, outcome Outcome, payload string) {
	w.resolved = true
	w.result = Result{Kind: kind, Outcome: outcome, Payload: payload}
	close(w.done)
}

// Metrics is a snapshot of the engine counters.
type Metrics struct {
	Dispatched uint64
	Matched    uint64
	Timeouts   uint64
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		Dispatched: e.dispatched.Load(),
		Matched:    e.matched.Load(),
		Timeouts:   e.timeouts.Load(),
	}
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}
