// Target and limit schedules
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package scenario

import "motiongen/pkg/config"

// Schedule is a time-ordered list of target and limit changes.
type Schedule struct {
	Targets []TargetStep
	Limits  []LimitStep
}

// Constant returns a schedule holding one target from time zero.
func Constant(target float64) Schedule {
	return Schedule{Targets: []TargetStep{{AtMs: 0, Target: target}}}
}

// TargetAt returns the target in force at ms. ok is false before the
// first step.
func (s Schedule) TargetAt(ms uint64) (target float64, ok bool) {
	for _, ts := range s.Targets {
		if ts.AtMs > ms {
			break
		}
		target, ok = ts.Target, true
	}
	return target, ok
}

// LimitsAt folds every limit step up to ms over base.
func (s Schedule) LimitsAt(ms uint64, base config.Limits) config.Limits {
	for _, ls := range s.Limits {
		if ls.AtMs > ms {
			break
		}
		if ls.MaxVelocity > 0 {
			base.MaxVelocity = ls.MaxVelocity
		}
		if ls.MaxAcceleration > 0 {
			base.MaxAcceleration = ls.MaxAcceleration
		}
	}
	return base
}

// LastChange returns the time of the last scheduled step.
func (s Schedule) LastChange() uint64 {
	var last uint64
	if n := len(s.Targets); n > 0 {
		last = s.Targets[n-1].AtMs
	}
	if n := len(s.Limits); n > 0 && s.Limits[n-1].AtMs > last {
		last = s.Limits[n-1].AtMs
	}
	return last
}
