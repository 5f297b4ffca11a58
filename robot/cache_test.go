package robot

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-tmcomm/ethslave"
	"github.com/arloliu/go-tmcomm/logger"
	"github.com/arloliu/go-tmcomm/motion"
	"github.com/stretchr/testify/require"
	requirepkg "github.com/stretchr/testify/require"
)

func telemetryFrame(txID int, base string) *ethslave.Frame {
	return ethslave.NewFrame(strconv.Itoa(txID), ethslave.ModeString,
		ethslave.Item{Key: ethslave.KeyBaseName, Value: `"` + base + `"`},
		ethslave.Item{Key: ethslave.KeyToolName, Value: `"NOTOOL"`},
		ethslave.Item{Key: ethslave.KeyToolValue, Value: "{0,0,0,0,0,0}"},
		ethslave.Item{Key: ethslave.KeyCoordBaseTool, Value: "{417.5,-122,363.9,180,0,90}"},
		ethslave.Item{Key: ethslave.KeyJointAngle, Value: "{0,0,90,0,90,0}"},
	)
}

func TestCache_Throttle(t *testing.T) {
	require := require.New(t)

	c := NewCache(logger.NewPermissiveMockLogger())

	updates := 0
	for cycle := 0; cycle < 3; cycle++ {
		for tx := 0; tx <= 9; tx++ {
			if c.Apply(telemetryFrame(tx, "RobotBase")) {
				updates++
			}
		}
	}

	require.Equal(6, updates)
	require.Equal(uint64(6), c.Applied())
	require.Equal(uint64(24), c.Skipped())

	require.False(c.Apply(ethslave.NewFrame("local", ethslave.ModeString)))
}

func TestCache_Apply(t *testing.T) {
	require := require.New(t)

	c := NewCache(logger.NewPermissiveMockLogger())
	require.False(c.Ready())

	require.True(c.Apply(telemetryFrame(0, "table")))

	s := c.Snapshot()
	require.Equal("table", s.Base)
	require.Equal("NOTOOL", s.Tool)
	require.True(s.TelemetryReady)
	require.False(s.CommandReady)
	require.Equal(motion.NewCartesian(417.5, -122, 363.9, 180, 0, 90), s.Cartesian)
	require.Equal(motion.NewJoint(0, 0, 90, 0, 90, 0), s.Joint)

	c.SetCommandReady(true)
	require.True(c.Ready())

	// a frame without pose items keeps the previous pose
	require.True(c.Apply(ethslave.NewFrame("5", ethslave.ModeString,
		ethslave.Item{Key: ethslave.KeyBaseName, Value: `"RobotBase"`})))
	s = c.Snapshot()
	require.Equal("RobotBase", s.Base)
	require.Equal(motion.NewJoint(0, 0, 90, 0, 90, 0), s.Joint)

	c.Reset()
	s = c.Snapshot()
	require.Equal(State{CommandReady: true}, s)
	require.False(c.Ready())
}

func TestCache_Subscribe(t *testing.T) {
	require := require.New(t)

	c := NewCache(logger.NewPermissiveMockLogger())
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Apply(telemetryFrame(0, "a"))
	c.Apply(telemetryFrame(5, "b"))
	c.Apply(telemetryFrame(0, "c"))

	// a slow subscriber only sees the latest snapshot
	s := <-ch
	require.Equal("c", s.Base)

	select {
	case <-ch:
		require.Fail("unexpected pending snapshot")
	default:
	}

	cancel()
	c.Apply(telemetryFrame(5, "d"))
	select {
	case <-ch:
		require.Fail("cancelled subscriber notified")
	default:
	}
}

func TestCache_NotifyOrder(t *testing.T) {
	require := require.New(t)

	c := NewCache(logger.NewPermissiveMockLogger())
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Apply(telemetryFrame(0, "table"))
	c.mu.Lock()
	staleSeq, stale := c.seq, c.state
	c.mu.Unlock()
	require.Equal("table", (<-ch).Base)

	c.Reset()
	require.Equal(State{}, <-ch)

	// a publish for the superseded change arriving late is skipped
	c.notify(staleSeq, stale)
	select {
	case s := <-ch:
		require.Fail("stale snapshot published", "%+v", s)
	default:
	}

	t.Run("concurrent apply and reset", func(t *testing.T) {
		require := requirepkg.New(t)

		c := NewCache(logger.NewPermissiveMockLogger())
		ch, cancel := c.Subscribe()
		defer cancel()

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 200 {
					if (i+j)%3 == 0 {
						c.Reset()
					} else {
						c.Apply(telemetryFrame(0, "b"+strconv.Itoa(j)))
					}
				}
			}()
		}
		wg.Wait()

		// the pending snapshot is the final state
		require.Equal(c.Snapshot(), <-ch)
	})
}

func TestCache_WaitFor(t *testing.T) {
	require := require.New(t)

	c := NewCache(logger.NewPermissiveMockLogger())
	isTable := func(s State) bool { return s.Base == "table" }

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Apply(telemetryFrame(0, "RobotBase"))
		c.Apply(telemetryFrame(5, "table"))
	}()

	s, ok := c.WaitFor(context.Background(), time.Second, isTable)
	require.True(ok)
	require.Equal("table", s.Base)

	// already satisfied
	_, ok = c.WaitFor(context.Background(), time.Millisecond, isTable)
	require.True(ok)

	start := time.Now()
	_, ok = c.WaitFor(context.Background(), 50*time.Millisecond, func(s State) bool { return s.Base == "other" })
	require.False(ok)
	require.Less(time.Since(start), 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = c.WaitFor(ctx, 0, func(s State) bool { return false })
	require.False(ok)
}
