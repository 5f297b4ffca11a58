package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-tmcomm/logger"
	"github.com/stretchr/testify/require"
)

func TestManager_StartStopWait(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), logger.NewPermissiveMockLogger())

	var iterations atomic.Int32
	var exited atomic.Bool
	err := mgr.Start("loop", func() bool {
		iterations.Add(1)
		time.Sleep(time.Millisecond)
		return true
	}, func() { exited.Store(true) })
	require.NoError(err)

	require.Eventually(func() bool { return iterations.Load() > 3 }, time.Second, time.Millisecond)
	require.Equal(1, mgr.TaskCount())

	mgr.Stop()
	mgr.Wait()

	require.True(exited.Load())
	require.Equal(0, mgr.TaskCount())

	// the manager is reusable after Wait
	require.NoError(mgr.Start("again", func() bool { return false }, nil))
	mgr.Wait()
}

func TestManager_TaskReturnsFalse(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), logger.NewPermissiveMockLogger())
	require.NoError(mgr.Start("once", func() bool { return false }, nil))

	mgr.Wait()
	require.Equal(0, mgr.TaskCount())
}

func TestManager_RecoverPanic(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), logger.NewPermissiveMockLogger())
	require.NoError(mgr.Start("panic", func() bool { panic("boom") }, nil))

	mgr.Wait()
	require.Equal(0, mgr.TaskCount())
}

func TestStartConsumer(t *testing.T) {
	require := require.New(t)

	mgr := NewManager(context.Background(), logger.NewPermissiveMockLogger())
	ch := make(chan int, 4)

	var sum atomic.Int32
	require.NoError(StartConsumer(mgr, "consumer", ch, func(v int) bool {
		sum.Add(int32(v))
		return true
	}))

	ch <- 1
	ch <- 2
	ch <- 3
	require.Eventually(func() bool { return sum.Load() == 6 }, time.Second, time.Millisecond)

	close(ch)
	mgr.Wait()

	require.Error(StartConsumer[int](mgr, "nil", nil, func(int) bool { return true }))
}

func TestManager_StartAfterStop(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewPermissiveMockLogger())
	mgr.Stop()

	require.ErrorIs(t, mgr.Start("late", func() bool { return false }, nil), ErrStopped)
}
