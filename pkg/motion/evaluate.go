// Closed-form plan evaluation
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package motion

// Phase identifies which segment of a plan is active.
type Phase int

const (
	// PhaseIdle means no plan has been made yet.
	PhaseIdle Phase = iota
	PhaseBrake
	PhaseAccel
	PhaseCruise
	PhaseDecel
	PhaseDone
)

var phaseNames = [...]string{"idle", "brake", "accel", "cruise", "decel", "done"}

// String returns the phase name.
func (p Phase) String() string {
	if p < PhaseIdle || p > PhaseDone {
		return "unknown"
	}
	return phaseNames[p]
}

// State is the kinematic command at one instant.
type State struct {
	Position     float64
	Velocity     float64
	Acceleration float64
	Phase        Phase
	Finished     bool
}

// Evaluate returns the commanded state t seconds after the plan start.
func Evaluate(p Plan, t float64) State {
	if t >= p.Total() {
		return State{Position: p.Target, Phase: PhaseDone, Finished: true}
	}

	a := p.MaxAcceleration
	s := float64(p.Sign)
	ramp := p.Ramp()

	switch {
	case t <= ramp:
		d := float64(p.AccelDir)
		phase := PhaseAccel
		if t < p.TBrake {
			phase = PhaseBrake
		}
		return State{
			Position:     p.StartPosition + p.StartVelocity*t + d*0.5*a*t*t,
			Velocity:     p.StartVelocity + d*a*t,
			Acceleration: d * a,
			Phase:        phase,
		}

	case p.Shape == ShapeTrapezoid && t < ramp+p.TCruise:
		return State{
			Position: p.StartPosition + s*(-p.DBrake+p.DAccel+p.PeakVelocity*(t-ramp)),
			Velocity: s * p.PeakVelocity,
			Phase:    PhaseCruise,
		}

	default:
		tau := t - ramp - p.TCruise
		vp := p.PeakVelocity
		return State{
			Position:     p.StartPosition + s*(-p.DBrake+p.DAccel+p.DCruise+vp*tau-0.5*a*tau*tau),
			Velocity:     s * (vp - a*tau),
			Acceleration: -s * a,
			Phase:        PhaseDecel,
		}
	}
}
