// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package runner drives a motion.Generator at a fixed control period and
// hands every tick's output to sinks.
//
// Simulate steps a manual clock with no sleeping, so its tables are
// reproducible. Loop runs on a reactor timer against the wall clock.
package runner

import (
	"time"

	"motiongen/pkg/clock"
	"motiongen/pkg/config"
	"motiongen/pkg/errors"
	"motiongen/pkg/log"
	"motiongen/pkg/metrics"
	"motiongen/pkg/motion"
	"motiongen/pkg/sample"
	"motiongen/pkg/scenario"
)

// Config controls one run.
type Config struct {
	Period time.Duration
	// Steps is the number of ticks. Zero runs a Loop until it is stopped;
	// Simulate requires at least one.
	Steps int

	Targets scenario.Schedule

	// StopWhenFinished ends the run at the first finished tick after the
	// last scheduled change.
	StopWhenFinished bool

	// LimitUpdates, when set, delivers new base limits between ticks.
	LimitUpdates <-chan config.Limits

	Recorder metrics.Recorder
	Logger   *log.Logger
}

// Sink consumes samples.
type Sink interface {
	WriteSample(s sample.Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(s sample.Sample) error

// WriteSample implements Sink.
func (f SinkFunc) WriteSample(s sample.Sample) error { return f(s) }

// Sinks writes each sample to every sink in order. The first error is
// returned after all sinks have seen the sample.
type Sinks []Sink

// WriteSample implements Sink.
func (ss Sinks) WriteSample(s sample.Sample) error {
	var first error
	for _, sink := range ss {
		if sink == nil {
			continue
		}
		if err := sink.WriteSample(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// StopReason says why a run ended.
type StopReason int

const (
	StopSteps StopReason = iota
	StopFinished
	StopCancelled
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopSteps:
		return "steps"
	case StopFinished:
		return "finished"
	case StopCancelled:
		return "cancelled"
	case StopError:
		return "error"
	default:
		return "unknown"
	}
}

// Result summarizes a run.
type Result struct {
	Last   sample.Sample
	Ticks  int
	Reason StopReason
}

// stepper advances the generator one tick at a time. It is shared by the
// simulated and the realtime drivers.
type stepper struct {
	g       *motion.Generator
	cfg     Config
	sinks   Sinks
	base    config.Limits
	logger  *log.Logger
	applied config.Limits

	override    float64
	hasOverride bool
}

func newStepper(g *motion.Generator, cfg Config, sinks []Sink) *stepper {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("runner")
	}
	base := config.Limits{MaxVelocity: g.MaxVelocity(), MaxAcceleration: g.MaxAcceleration()}
	return &stepper{
		g:       g,
		cfg:     cfg,
		sinks:   Sinks(sinks),
		base:    base,
		applied: base,
		logger:  logger,
	}
}

func checkConfig(cfg Config) error {
	if cfg.Period < time.Millisecond {
		return errors.InvalidParameter("period", cfg.Period.Seconds(), "must be at least 1ms")
	}
	if cfg.Steps < 0 {
		return errors.InvalidParameter("steps", float64(cfg.Steps), "must not be negative")
	}
	return nil
}

// setBase replaces the limits the schedule folds over.
func (st *stepper) setBase(l config.Limits) {
	st.logger.WithField("limits", l.String()).Info("limits updated")
	st.base = l
}

// applyLimits pushes the limits in force at ms into the generator. They
// take effect at its next replan.
func (st *stepper) applyLimits(ms uint64) error {
	want := st.cfg.Targets.LimitsAt(ms, st.base)
	if want == st.applied {
		return nil
	}
	if err := st.g.SetMaxVelocity(want.MaxVelocity); err != nil {
		return err
	}
	if err := st.g.SetMaxAcceleration(want.MaxAcceleration); err != nil {
		return err
	}
	st.applied = want
	st.logger.WithFields(log.Fields{
		"at_ms":  ms,
		"limits": want.String(),
	}).Debug("applied limits")
	return nil
}

// step runs one tick at schedule time ms.
func (st *stepper) step(ms uint64) (sample.Sample, error) {
	if err := st.applyLimits(ms); err != nil {
		return sample.Sample{}, err
	}

	target, ok := st.cfg.Targets.TargetAt(ms)
	if st.hasOverride {
		target, ok = st.override, true
	}

	replans := st.g.Replans()
	var elapsed time.Duration
	if ok {
		start := time.Now()
		st.g.Update(target)
		elapsed = time.Since(start)
	}
	s := sample.FromGenerator(ms, st.g)

	if st.cfg.Recorder != nil {
		st.cfg.Recorder.RecordTick(s, st.g.Plan(), st.g.Replans() != replans, elapsed)
	}
	if err := st.sinks.WriteSample(s); err != nil {
		return s, err
	}
	return s, nil
}

// done reports whether a finished tick at ms may end the run. An
// overriding target replaces the rest of the schedule.
func (st *stepper) done(s sample.Sample, ms uint64) bool {
	if !st.cfg.StopWhenFinished || !s.Finished {
		return false
	}
	return st.hasOverride || ms >= st.cfg.Targets.LastChange()
}

// Simulate runs cfg.Steps ticks against clk. Tick i is evaluated with the
// clock at its start value plus i periods and is emitted with time
// i*Period, so the table starts at zero.
func Simulate(g *motion.Generator, clk *clock.Manual, cfg Config, sinks ...Sink) (Result, error) {
	if err := checkConfig(cfg); err != nil {
		return Result{}, err
	}
	if cfg.Steps == 0 {
		return Result{}, errors.InvalidParameter("steps", 0, "must be at least 1")
	}

	st := newStepper(g, cfg, sinks)
	periodMs := uint64(cfg.Period / time.Millisecond)
	start := clk.ElapsedMillis()

	var res Result
	res.Reason = StopSteps
	for i := 0; i < cfg.Steps; i++ {
		if cfg.LimitUpdates != nil {
			drainLimits(st, cfg.LimitUpdates)
		}

		ms := uint64(i) * periodMs
		clk.Set(start + ms)
		s, err := st.step(ms)
		if err != nil {
			res.Reason = StopError
			return res, err
		}
		res.Last = s
		res.Ticks++

		if st.done(s, ms) {
			res.Reason = StopFinished
			break
		}
	}

	st.logger.WithFields(log.Fields{
		"ticks":    res.Ticks,
		"reason":   res.Reason.String(),
		"position": res.Last.Position,
	}).Debug("simulation complete")
	return res, nil
}

// drainLimits applies the newest pending limit update, if any.
func drainLimits(st *stepper, ch <-chan config.Limits) {
	var (
		latest config.Limits
		got    bool
	)
drain:
	for {
		select {
		case l, ok := <-ch:
			if !ok {
				break drain
			}
			latest, got = l, true
		default:
			break drain
		}
	}
	if got {
		st.setBase(latest)
	}
}
