package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	assert := assert.New(t)

	t.Run("Get and Put", func(t *testing.T) {
		timer1 := GetTimer(1 * time.Second)
		assert.NotNil(timer1)
		PutTimer(timer1)

		timer2 := GetTimer(20 * time.Millisecond)
		assert.NotNil(timer2)
		<-timer2.C
		PutTimer(timer2)
	})

	t.Run("Put Fired Timer", func(t *testing.T) {
		timer1 := GetTimer(10 * time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		PutTimer(timer1)

		timer2 := GetTimer(200 * time.Millisecond)
		select {
		case <-timer2.C:
			t.Error("reused timer must not carry a stale tick")
		case <-time.After(50 * time.Millisecond):
		}
		PutTimer(timer2)
	})
}

func TestDeadline(t *testing.T) {
	assert := assert.New(t)

	t.Run("Bounded", func(t *testing.T) {
		d := NewDeadline(20 * time.Millisecond)
		defer d.Release()

		select {
		case <-d.C():
		case <-time.After(time.Second):
			t.Error("deadline did not fire")
		}
	})

	t.Run("Unbounded", func(t *testing.T) {
		d := NewDeadline(0)
		defer d.Release()
		assert.Nil(d.C())

		select {
		case <-d.C():
			t.Error("unbounded deadline fired")
		case <-time.After(30 * time.Millisecond):
		}
	})
}
