package mocks

import (
	"time"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/scheduler"
)

// MockScheduler is a mock implementation of Scheduler for testing.
// Scheduled callbacks never fire on their own; tests trigger them with Fire.
type MockScheduler struct {
	Tasks []*MockTask
}

// Ensure MockScheduler implements Scheduler
var _ scheduler.Scheduler = (*MockScheduler)(nil)

// NewMockScheduler creates a new MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// AfterFunc records the callback and returns a cancellable handle
func (s *MockScheduler) AfterFunc(d time.Duration, fn func()) scheduler.Task {
	task := &MockTask{Delay: d, fn: fn}
	s.Tasks = append(s.Tasks, task)
	return task
}

// Fire runs the i-th scheduled task unless it was cancelled or already fired
func (s *MockScheduler) Fire(i int) {
	if i < 0 || i >= len(s.Tasks) {
		return
	}
	s.Tasks[i].fire()
}

// FireAll runs every pending task in scheduling order
func (s *MockScheduler) FireAll() {
	for _, t := range s.Tasks {
		t.fire()
	}
}

// MockTask is a recorded scheduled callback
type MockTask struct {
	Delay     time.Duration
	Cancelled bool
	Fired     bool
	fn        func()
}

// Cancel marks the task cancelled
func (t *MockTask) Cancel() bool {
	if t.Fired || t.Cancelled {
		return false
	}
	t.Cancelled = true
	return true
}

func (t *MockTask) fire() {
	if t.Cancelled || t.Fired {
		return
	}
	t.Fired = true
	t.fn()
}
