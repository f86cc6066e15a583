package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestManualScheduler_RunsInOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []int

	s.AfterFunc(time.Second, func() {
		order = append(order, 1)
		s.AfterFunc(time.Millisecond, func() { order = append(order, 3) })
	})
	s.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	d, ok := s.NextDelay()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)

	assert.Equal(t, 3, s.RunAll())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.False(t, s.RunNext())
}

func TestManualScheduler_Stop(t *testing.T) {
	s := NewManualScheduler()
	ran := false

	stop := s.AfterFunc(time.Second, func() { ran = true })
	assert.True(t, stop())
	assert.False(t, stop(), "already stopped")
	assert.Zero(t, s.Pending())

	s.RunAll()
	assert.False(t, ran)
}

func TestTimerScheduler_Stop(t *testing.T) {
	defer goleak.VerifyNone(t)

	fired := make(chan struct{})
	stop := TimerScheduler{}.AfterFunc(time.Hour, func() { close(fired) })
	assert.True(t, stop())

	done := make(chan struct{})
	TimerScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
