package robot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/internal/pool"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is the shared, mutation-guarded robot state.
//
// Readers get whole snapshots, writers replace the whole state under the lock, so a
// reader never observes a new base name with an old pose. Every change is published to
// subscribers after the lock is released, in the order the changes were made.
type Cache struct {
	mu     sync.RWMutex
	state  State
	seq    uint64 // guarded by mu, bumped on every change
	logger logger.Logger

	notifyMu  sync.Mutex
	published uint64 // guarded by notifyMu

	subs   *xsync.MapOf[uint64, chan State]
	nextID atomic.Uint64

	applied atomic.Uint64
	skipped atomic.Uint64
}

// NewCache creates an empty, not ready cache.
func NewCache(l logger.Logger) *Cache {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Cache{
		logger: l,
		subs:   xsync.NewMapOf[uint64, chan State](),
	}
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Ready reports whether both channels are ready.
func (c *Cache) Ready() bool {
	return c.Snapshot().Ready()
}

// Apply updates the state from a telemetry frame.
//
// It returns false, leaving the state untouched, when the frame's transaction index
// isn't selected by ShouldUpdate.
func (c *Cache) Apply(f *ethslave.Frame) bool {
	if !ShouldUpdate(f.TransactionIndex()) {
		c.skipped.Add(1)
		return false
	}

	c.mu.Lock()
	c.state = c.state.next(f)
	seq, snapshot := c.bumpLocked()
	c.mu.Unlock()

	c.applied.Add(1)
	c.notify(seq, snapshot)

	return true
}

// Reset clears the telemetry fed fields and marks telemetry not ready. The command
// channel readiness is kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.state = State{CommandReady: c.state.CommandReady}
	seq, snapshot := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Debug("robot state reset")
	c.notify(seq, snapshot)
}

// SetCommandReady sets the command channel readiness.
func (c *Cache) SetCommandReady(ready bool) {
	c.mu.Lock()
	if c.state.CommandReady == ready {
		c.mu.Unlock()
		return
	}
	c.state.CommandReady = ready
	seq, snapshot := c.bumpLocked()
	c.mu.Unlock()

	c.notify(seq, snapshot)
}

// Applied returns the number of telemetry frames that updated the state.
func (c *Cache) Applied() uint64 {
	return c.applied.Load()
}

// Skipped returns the number of telemetry frames dropped by the update throttle.
func (c *Cache) Skipped() uint64 {
	return c.skipped.Load()
}

// Subscribe registers a change subscriber.
//
// The returned channel holds at most one pending snapshot; a subscriber that falls
// behind only sees the latest state. The cancel function unregisters the subscriber
// and must be called once the subscriber is done.
func (c *Cache) Subscribe() (<-chan State, func()) {
	id := c.nextID.Add(1)
	ch := make(chan State, 1)
	c.subs.Store(id, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() { c.subs.Delete(id) })
	}

	return ch, cancel
}

func (c *Cache) bumpLocked() (uint64, State) {
	c.seq++
	return c.seq, c.state
}

// notify publishes the snapshot of change seq. A snapshot older than one already
// published is skipped, so subscribers never go back to a superseded state.
func (c *Cache) notify(seq uint64, s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if seq <= c.published {
		return
	}
	c.published = seq

	c.subs.Range(func(_ uint64, ch chan State) bool {
		for {
			select {
			case ch <- s:
				return true
			default:
			}

			// drop the stale snapshot and retry
			select {
			case <-ch:
			default:
			}
		}
	})
}

// WaitFor waits until pred holds for the state, the timeout elapses or ctx is done.
// A timeout <= 0 waits on ctx only.
//
// It returns the last observed state and whether pred held for it.
func (c *Cache) WaitFor(ctx context.Context, timeout time.Duration, pred func(State) bool) (State, bool) {
	ch, cancel := c.Subscribe()
	defer cancel()

	s := c.Snapshot()
	if pred(s) {
		return s, true
	}

	deadline := pool.NewDeadline(timeout)
	defer deadline.Release()

	for {
		select {
		case s = <-ch:
			if pred(s) {
				return s, true
			}
		case <-deadline.C():
			return s, false
		case <-ctx.Done():
			return s, false
		}
	}
}
