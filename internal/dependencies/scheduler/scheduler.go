package scheduler

import "time"

// Task is a handle to a scheduled callback
type Task interface {
	// Cancel stops the task from firing. It reports whether the cancellation
	// prevented the callback from running.
	Cancel() bool
}

// Scheduler provides deferred execution that can be mocked for testing.
// Callbacks run on their own goroutine; anything they touch must re-validate
// state at fire time.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// RealScheduler implements Scheduler using time.AfterFunc
type RealScheduler struct{}

// New creates a new RealScheduler
func New() *RealScheduler {
	return &RealScheduler{}
}

// AfterFunc schedules fn to run after d
func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return &timerTask{timer: time.AfterFunc(d, fn)}
}

type timerTask struct {
	timer *time.Timer
}

func (t *timerTask) Cancel() bool {
	return t.timer.Stop()
}
