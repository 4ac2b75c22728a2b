package popup

import (
	"context"
	"sync"
)

// Dispatcher runs closures on the UI loop. Implementations must run closures
// one at a time and in the order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline runs each closure immediately on the calling goroutine.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// Loop is a single-goroutine event loop. Dispatch may be called from any
// goroutine; closures run on the goroutine that called Run.
type Loop struct {
	work     chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop whose queue holds up to buffer pending closures.
func NewLoop(buffer int) *Loop {
	return &Loop{
		work: make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Dispatch queues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.work <- fn:
	case <-l.done:
	}
}

// Run executes queued closures until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.done:
			return nil
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop ends Run. Closures still queued are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
