// Package pool recycles timers used by timed waits on the robot channels.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer for the given duration d from the pool.
//
// Return the timer back to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer)
		if t.Reset(d) {
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}
	return time.NewTimer(d)
}

// PutTimer returns timer to the pool.
//
// t cannot be accessed after returning to the pool.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}

// Deadline is an optional pooled timer. A Deadline created with a non-positive
// duration never fires.
type Deadline struct {
	timer *time.Timer
}

// NewDeadline starts a deadline that fires after d, or never when d <= 0.
func NewDeadline(d time.Duration) Deadline {
	if d <= 0 {
		return Deadline{}
	}

	return Deadline{timer: GetTimer(d)}
}

// C returns the channel that receives when the deadline expires. It is nil, and
// therefore blocks forever in a select, for an unbounded deadline.
func (d Deadline) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}

	return d.timer.C
}

// Release returns the underlying timer to the pool.
func (d Deadline) Release() {
	if d.timer != nil {
		PutTimer(d.timer)
	}
}
