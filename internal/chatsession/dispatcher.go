package chatsession

import "context"

// Dispatcher runs tasks one at a time on a single goroutine. Every
// controller method and every view mutation happens inside a task.
type Dispatcher interface {
	Post(task func())
}

// Loop is a Dispatcher backed by a buffered channel drained by Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// NewLoop creates a loop with the given queue capacity.
func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes posted tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case task := <-l.tasks:
			task()
		case <-ctx.Done():
			return
		}
	}
}

// Post enqueues a task. Tasks posted after the loop stopped are dropped.
// Post must not be called from inside a task when the queue may be full.
func (l *Loop) Post(task func()) {
	select {
	case l.tasks <- task:
	case <-l.done:
	}
}

// Do posts task and waits for it to run. It reports false if the loop
// stopped first.
func (l *Loop) Do(task func()) bool {
	ran := make(chan struct{})
	l.Post(func() {
		task()
		close(ran)
	})
	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}
