// Motion plan computation
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

import "math"

// Shape is the velocity profile of a plan.
type Shape int

const (
	// ShapeTrapezoid reaches the velocity limit and cruises.
	ShapeTrapezoid Shape = iota
	// ShapeTriangle peaks below the velocity limit with no cruise.
	ShapeTriangle
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeTrapezoid:
		return "trapezoid"
	case ShapeTriangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// Plan is the closed-form profile from one start state to one target.
// Durations are in seconds and distances are unsigned magnitudes.
type Plan struct {
	// Sign is the direction of travel after braking: -1, 0 or +1.
	Sign int
	// AccelDir is the sign of the acceleration during the first phase.
	// It equals Sign except when braking onto the target or shedding
	// speed above the velocity limit.
	AccelDir int
	Shape    Shape

	TBrake  float64
	TAccel  float64
	TCruise float64
	TDecel  float64

	DBrake  float64
	DAccel  float64
	DCruise float64
	DDecel  float64
	DTotal  float64

	// PeakVelocity is MaxVelocity for a trapezoid.
	PeakVelocity float64

	// Limits in force when the plan was made
	MaxVelocity     float64
	MaxAcceleration float64

	StartPosition float64
	StartVelocity float64
	StartMillis   uint64
	Target        float64
}

// Total returns the plan duration in seconds.
func (p Plan) Total() float64 {
	return p.TBrake + p.TAccel + p.TCruise + p.TDecel
}

// Ramp returns the end of the first phase (brake plus accel) in seconds.
func (p Plan) Ramp() float64 {
	return p.TBrake + p.TAccel
}

func sign(v float64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// PlanMove computes the profile that takes an actuator at startPosition
// moving at startVelocity to rest on target. Limits must be positive and
// finite.
func PlanMove(startPosition, startVelocity, target, maxVelocity, maxAcceleration float64, startMillis uint64) Plan {
	p := Plan{
		Shape:           ShapeTrapezoid,
		MaxVelocity:     maxVelocity,
		MaxAcceleration: maxAcceleration,
		StartPosition:   startPosition,
		StartVelocity:   startVelocity,
		StartMillis:     startMillis,
		Target:          target,
	}
	vmax, a := maxVelocity, maxAcceleration
	speed := math.Abs(startVelocity)
	dir := sign(startVelocity)

	p.TBrake = speed / a
	p.DBrake = p.TBrake * speed / 2
	p.Sign = sign(target - (startPosition + float64(dir)*p.DBrake))

	if p.Sign == 0 {
		// At rest on the target, or stopping exactly on it.
		p.Shape = ShapeTriangle
		p.AccelDir = -dir
		if dir == 0 {
			p.TBrake, p.DBrake = 0, 0
		}
		return p
	}

	p.AccelDir = p.Sign
	reversal := p.Sign != dir
	overspeed := !reversal && speed > vmax
	switch {
	case reversal:
		p.TAccel = vmax / a
		p.DAccel = p.TAccel * vmax / 2
	case overspeed:
		p.TBrake, p.DBrake = 0, 0
		p.AccelDir = -p.Sign
		p.TAccel = (speed - vmax) / a
		p.DAccel = p.TAccel * (vmax + speed) / 2
	default:
		p.TBrake, p.DBrake = 0, 0
		p.TAccel = (vmax - speed) / a
		p.DAccel = p.TAccel * (vmax + speed) / 2
	}

	p.DTotal = math.Abs(target - startPosition + float64(p.Sign)*p.DBrake)
	p.TDecel = vmax / a
	p.DDecel = p.TDecel * vmax / 2
	p.DCruise = p.DTotal - (p.DAccel + p.DDecel)
	p.TCruise = p.DCruise / vmax

	if p.TCruise > 0 || overspeed {
		// Slowing to the limit then stopping never overshoots the braking
		// point, so a negative cruise here is rounding.
		if p.TCruise < 0 {
			p.TCruise, p.DCruise = 0, 0
		}
		p.PeakVelocity = vmax
		return p
	}

	p.Shape = ShapeTriangle
	var peak float64
	if reversal {
		peak = math.Sqrt(a * p.DTotal)
		p.TAccel = peak / a
		p.DAccel = p.TAccel * peak / 2
	} else {
		peak = math.Sqrt(0.5*speed*speed + a*p.DTotal)
		if peak < speed {
			peak = speed
		}
		p.TAccel = (peak - speed) / a
		p.DAccel = p.TAccel * (peak + speed) / 2
	}
	p.PeakVelocity = peak
	p.TDecel = peak / a
	p.DDecel = p.TDecel * peak / 2
	p.TCruise, p.DCruise = 0, 0
	return p
}
