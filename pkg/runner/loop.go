// Realtime control loop
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package runner

import (
	"context"
	"time"

	"motiongen/pkg/errors"
	"motiongen/pkg/log"
	"motiongen/pkg/motion"
	"motiongen/pkg/reactor"
)

// Loop ticks a generator on a reactor timer. The generator should use the
// reactor as its time source so plans and ticks share one clock. All
// generator access happens on the reactor goroutine.
type Loop struct {
	r      *reactor.Reactor
	st     *stepper
	cfg    Config
	logger *log.Logger

	timer    *reactor.Timer
	done     *reactor.Completion
	startMs  uint64
	nextWake float64
	res      Result
	stopped  bool
}

type loopOutcome struct {
	res Result
	err error
}

// NewLoop prepares a loop. Nothing runs until Start.
func NewLoop(r *reactor.Reactor, g *motion.Generator, cfg Config, sinks ...Sink) (*Loop, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	st := newStepper(g, cfg, sinks)
	return &Loop{
		r:      r,
		st:     st,
		cfg:    cfg,
		logger: st.logger,
		done:   r.Completion(),
	}, nil
}

// Start registers the tick timer on the reactor goroutine. The first tick
// runs immediately.
func (l *Loop) Start() error {
	l.logger.WithFields(log.Fields{
		"period_ms": l.cfg.Period.Milliseconds(),
		"steps":     l.cfg.Steps,
	}).Info("control loop starting")
	return l.post(func(float64) {
		if !l.stopped {
			l.timer = l.r.RegisterTimer(l.tick, reactor.NOW)
		}
	})
}

// post retries while the reactor queue is full.
func (l *Loop) post(fn func(eventtime float64)) error {
	for {
		err := l.r.Post(fn)
		if err != reactor.ErrQueueFull {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

// Stop asks the loop to end after the current tick.
func (l *Loop) Stop() error {
	return l.r.Post(func(float64) {
		l.finish(StopCancelled, nil)
	})
}

// SetTarget overrides the scheduled target from now on.
func (l *Loop) SetTarget(target float64) error {
	return l.r.Post(func(float64) {
		l.st.override, l.st.hasOverride = target, true
	})
}

// Done is closed when the loop has ended.
func (l *Loop) Done() <-chan struct{} {
	return l.done.Done()
}

// Run starts the loop and blocks until it ends or ctx is cancelled.
// Cancellation is a normal stop and returns a nil error.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	if err := l.Start(); err != nil {
		return Result{Reason: StopError}, errors.Wrap(err, errors.ErrRuntime, "start control loop")
	}
	return l.Wait(ctx)
}

// Wait blocks until the loop ends. Cancelling ctx stops it.
func (l *Loop) Wait(ctx context.Context) (Result, error) {
	select {
	case <-l.done.Done():
	case <-ctx.Done():
		l.stopAndWait()
	case <-l.r.Done():
		l.stopAndWait()
	}
	out, _ := l.done.Wait(time.Minute, nil).(loopOutcome)
	return out.res, out.err
}

func (l *Loop) stopAndWait() {
	if err := l.post(func(float64) { l.finish(StopCancelled, nil) }); err == nil {
		select {
		case <-l.done.Done():
			return
		case <-l.r.Done():
		}
	}
	// The reactor is gone, so nothing else touches the loop state once
	// its goroutine has exited.
	l.r.Wait()
	l.finish(StopCancelled, nil)
}

func (l *Loop) finish(reason StopReason, err error) {
	if l.stopped {
		return
	}
	l.stopped = true
	l.res.Reason = reason
	if l.timer != nil {
		l.r.UnregisterTimer(l.timer)
	}

	entry := l.logger.WithFields(log.Fields{
		"ticks":    l.res.Ticks,
		"reason":   reason.String(),
		"position": l.res.Last.Position,
	})
	if err != nil {
		entry.WithError(err).Error("control loop failed")
	} else {
		entry.Info("control loop stopped")
	}
	l.done.Complete(loopOutcome{res: l.res, err: err})
}

func (l *Loop) tick(eventtime float64) float64 {
	if l.stopped {
		return reactor.NEVER
	}

	now := l.r.ElapsedMillis()
	if l.res.Ticks == 0 {
		l.startMs = now
		l.nextWake = eventtime
	}
	ms := now - l.startMs

	if l.cfg.LimitUpdates != nil {
		drainLimits(l.st, l.cfg.LimitUpdates)
	}

	s, err := l.st.step(ms)
	if err != nil {
		l.finish(StopError, errors.Wrap(err, errors.ErrRuntime, "control tick"))
		return reactor.NEVER
	}
	l.res.Last = s
	l.res.Ticks++

	switch {
	case l.cfg.Steps > 0 && l.res.Ticks >= l.cfg.Steps:
		l.finish(StopSteps, nil)
		return reactor.NEVER
	case l.st.done(s, ms):
		l.finish(StopFinished, nil)
		return reactor.NEVER
	}

	// Keep a fixed cadence; skip missed ticks rather than bunching them.
	l.nextWake += l.cfg.Period.Seconds()
	if l.nextWake < eventtime {
		l.nextWake = eventtime
	}
	return l.nextWake
}
