package flow

import (
	"sync"
	"time"
)

// Scheduler defers a step of the conversation. AfterFunc must not run f
// before it returns; the engine calls it with its lock held.
// The returned stop func cancels f if it has not started yet.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// TimerScheduler runs deferred steps on real timers.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// ManualScheduler queues deferred steps until the caller runs them, so a
// whole conversation can be driven synchronously.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []*manualTask
}

type manualTask struct {
	delay time.Duration
	f     func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &manualTask{delay: d, f: f}
	s.queue = append(s.queue, task)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, t := range s.queue {
			if t == task {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				return true
			}
		}
		return false
	}
}

// Pending returns the number of queued steps.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextDelay reports the delay of the oldest queued step.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].delay, true
}

// RunNext runs the oldest queued step and reports whether there was one.
func (s *ManualScheduler) RunNext() bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	task := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	task.f()
	return true
}

// RunAll runs queued steps, including ones they schedule, until the queue
// is empty. It returns how many steps ran.
func (s *ManualScheduler) RunAll() int {
	n := 0
	for s.RunNext() {
		n++
	}
	return n
}
