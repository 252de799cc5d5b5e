// Package reactor provides the single-threaded, cooperative event loop a
// Stream is bound to at construction: all callbacks for that Stream are
// dispatched by that one reactor, and a Stream is not safe for
// concurrent use from multiple threads as a result.
//
// A net/http style client dispatches each request on whichever goroutine
// calls it -- there is no shared loop, because such clients don't need
// one. This module does, because a Stream's
// asynchronous API (AsyncOpen, AsyncReadSome, ...) must serialize every
// completion for one Stream onto one logical thread of control even
// though the underlying I/O (net.Conn reads, TLS handshakes) runs on
// goroutines the Go runtime schedules freely. A Reactor is that logical
// thread: a single background goroutine draining a work queue, so only
// one operation is ever outstanding at a time by construction rather
// than by a mutex bolted onto Stream.
package reactor

import (
	"log"
	"sync"

	"github.com/benbjohnson/clock"
)

// Reactor runs posted functions one at a time, in the order they were
// posted, on a single dedicated goroutine.
type Reactor struct {
	clock  clock.Clock
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger *log.Logger // optional; only used to note a dropped post after Stop
}

// New starts a Reactor backed by the real wall clock.
func New() *Reactor {
	return NewWithClock(clock.New())
}

// NewWithClock starts a Reactor backed by c, letting tests drive
// cancellation timers deterministically instead of sleeping on the real
// clock.
func NewWithClock(c clock.Clock) *Reactor {
	r := &Reactor{
		clock: c,
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reactor) run() {
	defer close(r.done)
	for task := range r.tasks {
		task()
	}
}

// SetLogger installs a destination for the reactor's own sparse
// diagnostic logging (currently just a note when Post drops a callback
// because the reactor already stopped); nil, the default, disables it.
func (r *Reactor) SetLogger(l *log.Logger) { r.logger = l }

// Post enqueues fn to run on the reactor's goroutine. Post never blocks
// the caller waiting for fn to run; it only blocks if the queue is full,
// which bounds how far a producer can outrun the reactor. After Stop,
// fn is dropped.
func (r *Reactor) Post(fn func()) {
	defer func() {
		// Stop closes the task queue; a send on it then panics, which is
		// turned into a dropped post here.
		if recover() != nil && r.logger != nil {
			r.logger.Printf("reactor: dropped a posted callback after Stop")
		}
	}()
	r.tasks <- fn
}

// Clock exposes the reactor's time source, so callers that implement a
// timeout by scheduling a cancel on the reactor can use the same fake
// clock a test installed.
func (r *Reactor) Clock() clock.Clock { return r.clock }

// Stop drains and closes the task queue, letting the background
// goroutine exit once any already-posted work finishes. Stop does not
// wait for that goroutine; call Wait if that's needed.
func (r *Reactor) Stop() {
	r.once.Do(func() { close(r.tasks) })
}

// Wait blocks until the reactor's goroutine has exited after Stop.
func (r *Reactor) Wait() { <-r.done }
