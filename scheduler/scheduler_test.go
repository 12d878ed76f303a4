package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pqtu-edu/progresskit/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddTicker_RunsAndStops(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n atomic.Int32
	s.AddTicker("tick", 10*time.Millisecond, func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Remove("tick")
	got := n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), got+1, "ticker kept firing after Remove")
}

func TestAddTicker_ReplacesSameName(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var a, b atomic.Int32
	s.AddTicker("tick", 10*time.Millisecond, func() { a.Add(1) })
	s.AddTicker("tick", 10*time.Millisecond, func() { b.Add(1) })

	require.Eventually(t, func() bool { return b.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"tick"}, s.Names())
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n atomic.Int32
	s.AddDelay("once", 10*time.Millisecond, func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestTask_PanicIsRecovered(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n atomic.Int32
	s.AddTicker("panicky", 10*time.Millisecond, func() {
		n.Add(1)
		panic("boom")
	})

	// The ticker survives its own panics.
	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStop_HaltsEverything(t *testing.T) {
	s := scheduler.New(zap.NewNop())

	var n atomic.Int32
	s.AddTicker("tick", 10*time.Millisecond, func() { n.Add(1) })
	s.Stop()
	s.Stop() // idempotent

	got := n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), got+1)
}

func TestStop_CancelsPendingDelay(t *testing.T) {
	s := scheduler.New(zap.NewNop())

	var n atomic.Int32
	s.AddDelay("later", 20*time.Millisecond, func() { n.Add(1) })
	s.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load(), "delay task fired after Stop")
}
