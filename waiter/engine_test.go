package waiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-tmcomm/listennode"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(logger.NewPermissiveMockLogger())
}

func scriptFrame(t *testing.T, id, payload string) *listennode.Frame {
	t.Helper()
	f, err := listennode.NewScriptFrame(id, payload)
	require.NoError(t, err)

	return f
}

func statusFrame(t *testing.T, id, payload string) *listennode.Frame {
	t.Helper()
	f, err := listennode.NewStatusFrame(id, payload)
	require.NoError(t, err)

	return f
}

func TestEngine_AcknowledgeResolved(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "base")
	require.True(e.IsArmed(Acknowledge))
	require.Equal("base", e.MatchKey(Acknowledge))

	require.True(e.Dispatch(scriptFrame(t, "base", "OK")))
	require.False(e.IsArmed(Acknowledge))

	res := e.Await(context.Background(), Acknowledge, time.Second)
	require.Equal(Resolved, res.Outcome)
	require.Equal(Acknowledge, res.Kind)
	require.Equal("OK", res.Payload)
	require.True(res.OK())

	// consumed
	res = e.Await(context.Background(), Acknowledge, time.Second)
	require.Equal(Timeout, res.Outcome)
}

func TestEngine_AcknowledgeNotOK(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "base")

	require.False(e.Dispatch(scriptFrame(t, "base", "ERROR;2")))
	require.False(e.Dispatch(scriptFrame(t, "tool", "OK")))
	require.True(e.IsArmed(Acknowledge))
}

func TestEngine_Overwrite(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "first")
	e.Arm(Acknowledge, "second")

	require.False(e.Dispatch(scriptFrame(t, "first", "OK")))
	require.True(e.IsArmed(Acknowledge))
	require.True(e.Dispatch(scriptFrame(t, "second", "OK")))

	res := e.Await(context.Background(), Acknowledge, 0)
	require.Equal(Resolved, res.Outcome)
}

func TestEngine_ExitPrecedence(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "local")
	e.Arm(QueueTagReached, "01")
	e.Arm(ComputedValueReady, "exit")

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, kind := range []Kind{Acknowledge, QueueTagReached} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.Await(context.Background(), kind, 5*time.Second)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	require.True(e.Dispatch(scriptFrame(t, ExitScriptID, "OK")))
	wg.Wait()

	require.Equal(Terminated, results[0].Outcome)
	require.Equal(Terminated, results[1].Outcome)

	// the exit frame resolves nothing else
	require.True(e.IsArmed(ComputedValueReady))
}

func TestEngine_TimeoutClearsWait(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(StatusReply, "00")

	start := time.Now()
	res := e.Await(context.Background(), StatusReply, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Equal(Timeout, res.Outcome)
	require.GreaterOrEqual(elapsed, 50*time.Millisecond)
	require.Less(elapsed, 100*time.Millisecond)
	require.False(e.IsArmed(StatusReply))
	require.Equal(uint64(1), e.Metrics().Timeouts)

	// a late reply is dropped
	require.False(e.Dispatch(statusFrame(t, "00", "true")))
}

func TestEngine_AwaitUnarmed(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	start := time.Now()
	res := e.Await(context.Background(), ComputedValueReady, time.Second)
	require.Equal(Timeout, res.Outcome)
	require.Less(time.Since(start), 50*time.Millisecond)
}

func TestEngine_ContextCancel(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(QueueTagReached, "01")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := e.Await(ctx, QueueTagReached, 0)
	require.Equal(Cancelled, res.Outcome)
	require.False(e.IsArmed(QueueTagReached))
}

func TestEngine_Cancel(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "dist")

	done := make(chan Result)
	go func() { done <- e.Await(context.Background(), Acknowledge, 5*time.Second) }()

	time.Sleep(10 * time.Millisecond)
	e.Cancel(Acknowledge)

	select {
	case res := <-done:
		require.Equal(Cancelled, res.Outcome)
	case <-time.After(time.Second):
		require.Fail("cancel didn't wake the waiter")
	}

	require.False(e.IsArmed(Acknowledge))
	e.Cancel(Acknowledge) // no-op
}

func TestEngine_FailAll(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "local")
	e.Arm(ComputedValueReady, "90")
	e.Arm(ScriptReentry, "Listen1")

	e.FailAll(Disconnected)

	for _, kind := range []Kind{Acknowledge, ComputedValueReady, ScriptReentry} {
		res := e.Await(context.Background(), kind, time.Second)
		require.Equal(Disconnected, res.Outcome, kind.String())
	}

	// a fresh arm after a failure starts clean
	e.Arm(Acknowledge, "local")
	require.True(e.IsArmed(Acknowledge))
}

func TestEngine_Rules(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()

	// computed value, any payload
	e.Arm(ComputedValueReady, "91")
	require.True(e.Dispatch(scriptFrame(t, "91", "5.000")))
	require.Equal("5.000", e.Await(context.Background(), ComputedValueReady, time.Second).Payload)

	// status replies only match TMSTA frames
	e.Arm(StatusReply, "00")
	require.False(e.Dispatch(scriptFrame(t, "00", "true")))
	require.True(e.Dispatch(statusFrame(t, "00", "true")))
	require.Equal("true", e.Await(context.Background(), StatusReply, time.Second).Payload)

	// queue tag needs both the script ID and the payload prefix
	e.Arm(QueueTagReached, "01")
	require.False(e.Dispatch(statusFrame(t, "01", "02,true")))
	require.True(e.Dispatch(statusFrame(t, "01", "01,true")))
	require.True(e.Await(context.Background(), QueueTagReached, time.Second).OK())

	// script re-entry matches the listen node name in the payload
	e.Arm(ScriptReentry, "Listen1")
	require.True(e.Dispatch(scriptFrame(t, "0", "Listen1")))
	require.True(e.Await(context.Background(), ScriptReentry, time.Second).OK())

	// communication errors never resolve
	e.Arm(Acknowledge, "local")
	require.False(e.Dispatch(listennode.NewCommErrorFrame(listennode.ErrCodeChecksum)))
	require.True(e.IsArmed(Acknowledge))

	m := e.Metrics()
	require.Equal(uint64(4), m.Matched)
	require.Equal(uint64(7), m.Dispatched)
}

func TestEngine_AcknowledgeBeforeComputedValue(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	e.Arm(Acknowledge, "90")
	e.Arm(ComputedValueReady, "90")

	// an OK for the shared key resolves the acknowledgement first, the value frame
	// then resolves the computed value
	require.True(e.Dispatch(scriptFrame(t, "90", "OK")))
	require.True(e.Dispatch(scriptFrame(t, "90", "1.000")))

	require.Equal("1.000", e.Await(context.Background(), ComputedValueReady, time.Second).Payload)
	require.True(e.Await(context.Background(), Acknowledge, time.Second).OK())
}
