// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package motion generates trapezoidal and triangular point-to-point
// motion profiles for a single axis.
//
// A Generator is asked on every control tick where the actuator should be
// now. When the requested target changes it replans from the current
// position and velocity, braking first if the new target lies behind the
// point where the actuator could stop. Profiles are evaluated in closed
// form, so there is no integration drift.
//
// A Generator is not safe for concurrent use. It is meant to be owned by
// one control loop goroutine.
package motion

import (
	"math"

	"motiongen/pkg/clock"
	"motiongen/pkg/errors"
	"motiongen/pkg/log"
)

// Generator tracks one actuator axis and its active plan.
type Generator struct {
	maxVelocity     float64
	maxAcceleration float64
	initPosition    float64

	clock  clock.TimeSource
	logger *log.Logger

	position     float64
	velocity     float64
	acceleration float64
	phase        Phase
	finished     bool

	lastTarget float64
	planned    bool
	plan       Plan
	replans    uint64

	warnedTarget bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeSource sets the clock used to evaluate plans. The default is a
// clock.System started at construction.
func WithTimeSource(ts clock.TimeSource) Option {
	return func(g *Generator) {
		g.clock = ts
	}
}

// WithLogger sets the logger for replan diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New creates a Generator at rest at initialPosition.
func New(maxVelocity, maxAcceleration, initialPosition float64, opts ...Option) (*Generator, error) {
	if err := checkLimit("max_velocity", maxVelocity); err != nil {
		return nil, err
	}
	if err := checkLimit("max_acceleration", maxAcceleration); err != nil {
		return nil, err
	}
	if err := checkFinite("initial_position", initialPosition); err != nil {
		return nil, err
	}

	g := &Generator{
		maxVelocity:     maxVelocity,
		maxAcceleration: maxAcceleration,
		initPosition:    initialPosition,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = clock.NewSystem()
	}
	if g.logger == nil {
		g.logger = log.GetLogger("motion")
	}
	g.Reset()
	return g, nil
}

func checkLimit(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.InvalidParameter(name, v, "must be finite")
	}
	if v <= 0 {
		return errors.InvalidParameter(name, v, "must be positive")
	}
	return nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.InvalidParameter(name, v, "must be finite")
	}
	return nil
}

// Reset returns the generator to rest at its initial position and forgets
// the last target. Limits are kept.
func (g *Generator) Reset() {
	g.position = g.initPosition
	g.velocity = 0
	g.acceleration = 0
	g.phase = PhaseIdle
	g.finished = false
	g.lastTarget = 0
	g.planned = false
	g.warnedTarget = false
	g.plan = Plan{
		Sign:            1,
		AccelDir:        1,
		Shape:           ShapeTrapezoid,
		MaxVelocity:     g.maxVelocity,
		MaxAcceleration: g.maxAcceleration,
		StartPosition:   g.initPosition,
		StartMillis:     g.clock.ElapsedMillis(),
	}
}

// Update advances the generator to the current time and returns the
// commanded position. A target that differs from the previous one, or the
// first target after construction or Reset, starts a new plan from the
// current state.
func (g *Generator) Update(target float64) float64 {
	now := g.clock.ElapsedMillis()

	if math.IsNaN(target) || math.IsInf(target, 0) {
		if !g.warnedTarget {
			g.logger.WithField("target", target).Warn("ignoring non-finite target")
			g.warnedTarget = true
		}
	} else {
		g.warnedTarget = false
		if !g.planned || math.Float64bits(target) != math.Float64bits(g.lastTarget) {
			g.replan(target, now)
		}
	}
	if !g.planned {
		return g.position
	}

	st := Evaluate(g.plan, float64(now-g.plan.StartMillis)/1000)
	g.position = st.Position
	g.velocity = st.Velocity
	g.acceleration = st.Acceleration
	g.phase = st.Phase
	g.finished = st.Finished
	return g.position
}

func (g *Generator) replan(target float64, now uint64) {
	g.finished = false
	g.lastTarget = target
	g.planned = true
	g.plan = PlanMove(g.position, g.velocity, target, g.maxVelocity, g.maxAcceleration, now)
	g.replans++

	if !g.logger.Enabled(log.DEBUG) {
		return
	}
	if g.plan.Total() == 0 {
		g.logger.WithError(errors.DegenerateMotion(target)).Debug("no motion needed")
		return
	}
	g.logger.WithFields(log.Fields{
		"target":   target,
		"from":     g.plan.StartPosition,
		"v0":       g.plan.StartVelocity,
		"sign":     g.plan.Sign,
		"shape":    g.plan.Shape.String(),
		"t_brake":  g.plan.TBrake,
		"t_accel":  g.plan.TAccel,
		"t_cruise": g.plan.TCruise,
		"t_decel":  g.plan.TDecel,
		"peak":     g.plan.PeakVelocity,
	}).Debug("replanned")
}

// Position returns the last commanded position.
func (g *Generator) Position() float64 { return g.position }

// Velocity returns the last commanded velocity.
func (g *Generator) Velocity() float64 { return g.velocity }

// Acceleration returns the last commanded acceleration.
func (g *Generator) Acceleration() float64 { return g.acceleration }

// Finished reports whether the active plan has completed.
func (g *Generator) Finished() bool { return g.finished }

// Phase returns the plan segment seen by the last Update.
func (g *Generator) Phase() Phase { return g.phase }

// Target returns the target of the active plan.
func (g *Generator) Target() float64 { return g.lastTarget }

// Plan returns a copy of the active plan.
func (g *Generator) Plan() Plan { return g.plan }

// Replans returns the number of plans made since construction.
func (g *Generator) Replans() uint64 { return g.replans }

// State returns the last commanded state.
func (g *Generator) State() State {
	return State{
		Position:     g.position,
		Velocity:     g.velocity,
		Acceleration: g.acceleration,
		Phase:        g.phase,
		Finished:     g.finished,
	}
}

// MaxVelocity returns the velocity limit used for the next plan.
func (g *Generator) MaxVelocity() float64 { return g.maxVelocity }

// MaxAcceleration returns the acceleration limit used for the next plan.
func (g *Generator) MaxAcceleration() float64 { return g.maxAcceleration }

// SetMaxVelocity changes the velocity limit. The active plan keeps the
// limit it was made with; the new value applies from the next target change.
func (g *Generator) SetMaxVelocity(v float64) error {
	if err := checkLimit("max_velocity", v); err != nil {
		return err
	}
	g.maxVelocity = v
	return nil
}

// SetMaxAcceleration changes the acceleration limit for the next plan.
func (g *Generator) SetMaxAcceleration(a float64) error {
	if err := checkLimit("max_acceleration", a); err != nil {
		return err
	}
	g.maxAcceleration = a
	return nil
}

// SetInitPosition moves the initial and current position, and the start of
// the active plan, to p. Velocity is left as is, so call it only at rest.
func (g *Generator) SetInitPosition(p float64) error {
	if err := checkFinite("initial_position", p); err != nil {
		return err
	}
	g.initPosition = p
	g.position = p
	g.plan.StartPosition = p
	return nil
}
