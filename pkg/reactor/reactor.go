// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package reactor provides the timer dispatch loop that drives realtime
// control ticks. All timer callbacks run on the reactor goroutine, so state
// owned by callbacks needs no locking. Other goroutines hand work to the
// loop with Post.
package reactor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Constants
const (
	NOW   = 0.0
	NEVER = 9999999999999999.0
)

// maxSleep bounds how long the loop sleeps between checks.
const maxSleep = time.Second

// Common errors
var (
	ErrReactorClosed = errors.New("reactor: reactor closed")
	ErrQueueFull     = errors.New("reactor: async queue full")
)

// TimerCallback is called when a timer fires.
// The callback receives the event time and returns the next wake time.
// Return NEVER to park the timer.
type TimerCallback func(eventtime float64) float64

// Timer represents a registered timer.
type Timer struct {
	id        uint64
	callback  TimerCallback
	waketime  float64
	isRunning bool
}

// Completion represents an operation that will complete with a result.
type Completion struct {
	reactor *Reactor
	result  interface{}
	done    chan struct{}
	once    sync.Once
}

// Test returns true if the completion has a result.
func (c *Completion) Test() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on completion.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Complete sets the completion result and wakes any waiters.
func (c *Completion) Complete(result interface{}) {
	c.once.Do(func() {
		c.result = result
		close(c.done)
	})
}

// Wait blocks until the completion is done, the timeout expires or the
// reactor ends. Returns the result or timeoutResult.
func (c *Completion) Wait(timeout time.Duration, timeoutResult interface{}) interface{} {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-c.done:
		return c.result
	case <-t.C:
		return timeoutResult
	case <-c.reactor.ctx.Done():
		// A completion made just before End still reports its result.
		if c.Test() {
			return c.result
		}
		return timeoutResult
	}
}

// Reactor manages timers and event dispatch.
type Reactor struct {
	mu          sync.Mutex
	timers      []*Timer
	nextTimerID uint64

	// Work posted from other goroutines
	asyncQueue chan func(eventtime float64)
	wake       chan struct{}

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// Running state
	running atomic.Bool
	wg      sync.WaitGroup

	// Start time for monotonic clock
	startTime time.Time
}

// New creates a new Reactor.
func New() *Reactor {
	return NewWithContext(context.Background())
}

// NewWithContext creates a Reactor that ends when ctx is cancelled.
func NewWithContext(parent context.Context) *Reactor {
	ctx, cancel := context.WithCancel(parent)
	return &Reactor{
		asyncQueue: make(chan func(float64), 64),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
	}
}

// Monotonic returns the current monotonic time in seconds.
func (r *Reactor) Monotonic() float64 {
	return time.Since(r.startTime).Seconds()
}

// ElapsedMillis returns whole milliseconds since the reactor was created,
// so the reactor can serve as the generator's time source.
func (r *Reactor) ElapsedMillis() uint64 {
	return uint64(time.Since(r.startTime).Milliseconds())
}

// Done is closed when the reactor ends.
func (r *Reactor) Done() <-chan struct{} {
	return r.ctx.Done()
}

func (r *Reactor) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// RegisterTimer registers a new timer with the given callback and wake time.
func (r *Reactor) RegisterTimer(callback TimerCallback, waketime float64) *Timer {
	r.mu.Lock()
	r.nextTimerID++
	timer := &Timer{
		id:       r.nextTimerID,
		callback: callback,
		waketime: waketime,
	}
	r.timers = append(r.timers, timer)
	r.mu.Unlock()

	r.signal()
	return timer
}

// UnregisterTimer removes a timer.
func (r *Reactor) UnregisterTimer(timer *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer.waketime = NEVER
	for i, t := range r.timers {
		if t.id == timer.id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
}

// UpdateTimer updates a timer's wake time. It has no effect from inside
// the timer's own callback; return the wake time instead.
func (r *Reactor) UpdateTimer(timer *Timer, waketime float64) {
	r.mu.Lock()
	if timer.isRunning {
		r.mu.Unlock()
		return
	}
	timer.waketime = waketime
	r.mu.Unlock()

	r.signal()
}

// Waketime returns the timer's current wake time.
func (r *Reactor) Waketime(timer *Timer) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return timer.waketime
}

// Completion creates a new Completion object.
func (r *Reactor) Completion() *Completion {
	return &Completion{
		reactor: r,
		done:    make(chan struct{}),
	}
}

// Post queues fn to run on the reactor goroutine. It never blocks.
func (r *Reactor) Post(fn func(eventtime float64)) error {
	if r.ctx.Err() != nil {
		return ErrReactorClosed
	}
	select {
	case r.asyncQueue <- fn:
		r.signal()
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the reactor's main dispatch loop.
func (r *Reactor) Run() {
	if r.running.Swap(true) {
		return // Already running
	}

	r.wg.Add(1)
	go r.dispatchLoop()
}

// End signals the reactor to stop.
func (r *Reactor) End() {
	r.running.Store(false)
	r.cancel()
}

// Wait waits for the reactor to stop.
func (r *Reactor) Wait() {
	r.wg.Wait()
}

// dispatchLoop is the main event dispatch loop.
func (r *Reactor) dispatchLoop() {
	defer r.wg.Done()

	sleep := time.NewTimer(maxSleep)
	defer sleep.Stop()

	for r.running.Load() && r.ctx.Err() == nil {
		eventtime := r.Monotonic()

		r.processAsyncCallbacks(eventtime)
		timeout := r.checkTimers(eventtime)
		if timeout <= 0 {
			continue
		}

		delay := time.Duration(timeout * float64(time.Second))
		if delay > maxSleep {
			delay = maxSleep
		}
		if !sleep.Stop() {
			select {
			case <-sleep.C:
			default:
			}
		}
		sleep.Reset(delay)

		select {
		case <-sleep.C:
		case <-r.wake:
		case <-r.ctx.Done():
			return
		}
	}
}

// processAsyncCallbacks runs pending posted work.
func (r *Reactor) processAsyncCallbacks(eventtime float64) {
	for {
		select {
		case fn := <-r.asyncQueue:
			fn(eventtime)
		default:
			return
		}
	}
}

// checkTimers fires due timers and returns the time until the next one.
func (r *Reactor) checkTimers(eventtime float64) float64 {
	r.mu.Lock()
	var due []*Timer
	for _, t := range r.timers {
		if eventtime >= t.waketime {
			t.waketime = NEVER
			t.isRunning = true
			due = append(due, t)
		}
	}
	r.mu.Unlock()

	for _, t := range due {
		next := t.callback(eventtime)

		r.mu.Lock()
		t.isRunning = false
		if next < t.waketime {
			t.waketime = next
		}
		r.mu.Unlock()

		if r.ctx.Err() != nil {
			return 0
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	nextWake := NEVER
	for _, t := range r.timers {
		if t.waketime < nextWake {
			nextWake = t.waketime
		}
	}
	delay := nextWake - r.Monotonic()
	if delay < 0 {
		delay = 0
	}
	return delay
}
