package ai

import (
	"context"
	"sync"
	"time"
)

const DebounceDelay = 500 * time.Millisecond

// Task is a scheduled call. Cancel stops it before it starts and cancels
// its context if it is already running.
type Task struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.timer.Stop()
	t.cancel()
}

// Debouncer runs only the most recently scheduled function, after delay of
// inactivity.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending *Task
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule cancels the pending task and schedules fn.
func (d *Debouncer) Schedule(parent context.Context, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Cancel()
	d.pending = t
	t.timer = time.AfterFunc(d.delay, func() {
		defer cancel()
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	return t
}

// Stop cancels whatever is pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Cancel()
	d.pending = nil
}
