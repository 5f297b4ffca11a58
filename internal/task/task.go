// Package task manages the goroutines behind a robot channel: the socket reader, the frame
// writer and the dispatcher that hands decoded frames to handlers.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-tmcomm/logger"
)

// ErrStopped is returned when a task is started on a stopped manager.
var ErrStopped = errors.New("task manager already stopped")

// Func performs one iteration of a task. It returns true to keep running and false to stop.
type Func func() bool

// CancelFunc is invoked when a task goroutine exits, whatever the reason.
type CancelFunc func()

// Manager manages the lifecycle of a group of goroutines.
//
// Stop cancels the shared context of all running tasks and Wait blocks until every
// task returned. After Wait, the manager can be reused to start a new group.
//
// Example Usage:
//
//	mgr := task.NewManager(ctx, logger)
//	_ = mgr.Start("reader", func() bool {
//	    return readOne()
//	}, nil)
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.RWMutex // protect ctx and cancel
	taskMu sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a new Manager using ctx as the parent context.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start runs taskFunc in a loop on a new goroutine until it returns false or the
// manager is stopped. onExit, when not nil, runs after the loop ends.
func (mgr *Manager) Start(name string, taskFunc Func, onExit CancelFunc) error {
	mgr.logger.Debug("start task", "name", name)

	ctx := mgr.Context()
	if ctx.Err() != nil {
		return ErrStopped
	}

	started := make(chan struct{})
	mgr.launch(name, started, func() {
		if onExit != nil {
			defer onExit()
		}
		mgr.runLoop(name, ctx, taskFunc)
	})

	select {
	case <-started:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for %s to start", name)
	}
}

// StartConsumer starts a goroutine that calls fn for every value received from ch, until
// fn returns false, ch is closed, or the manager is stopped.
func StartConsumer[T any](mgr *Manager, name string, ch <-chan T, fn func(T) bool) error {
	if ch == nil {
		return fmt.Errorf("input channel of %s is nil", name)
	}

	ctx := mgr.Context()

	return mgr.Start(name, func() bool {
		select {
		case <-ctx.Done():
			return false
		case v, ok := <-ch:
			if !ok {
				mgr.logger.Debug("input channel closed", "name", name)
				return false
			}

			return fn(v)
		}
	}, nil)
}

// Stop signals all running tasks to terminate.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all tasks to terminate and prepares a fresh context for the next group.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// TaskCount returns the number of currently running tasks.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) launch(name string, started chan<- struct{}, body func()) {
	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()

		mgr.count.Add(1)
		close(started)

		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.TaskCount())
		}()

		body()
	}()
}

// runLoop runs taskFunc until it returns false or ctx is done, recovering panics.
func (mgr *Manager) runLoop(name string, ctx context.Context, taskFunc Func) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task loop", "name", name, "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !taskFunc() {
				return
			}
		}
	}
}
