// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package scenario loads YAML target schedules for simulated runs.
//
// A scenario names the starting limits and a list of timed target and limit
// changes:
//
//	name: reversal
//	max_velocity: 2
//	max_acceleration: 1
//	period_ms: 100
//	steps: 120
//	targets:
//	  - {at_ms: 0, target: 10}
//	  - {at_ms: 3000, target: 0}
//	limits:
//	  - {at_ms: 5000, max_velocity: 1}
package scenario

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"motiongen/pkg/config"
	"motiongen/pkg/errors"
)

const (
	defaultPeriodMs = 100
	defaultSteps    = 100
)

// TargetStep sets the target from AtMs on.
type TargetStep struct {
	AtMs   uint64  `yaml:"at_ms"`
	Target float64 `yaml:"target"`
}

// LimitStep changes the limits from AtMs on. A zero field keeps the
// previous value.
type LimitStep struct {
	AtMs            uint64  `yaml:"at_ms"`
	MaxVelocity     float64 `yaml:"max_velocity,omitempty"`
	MaxAcceleration float64 `yaml:"max_acceleration,omitempty"`
}

// Scenario is one YAML scenario file.
type Scenario struct {
	Name            string       `yaml:"name"`
	MaxVelocity     float64      `yaml:"max_velocity"`
	MaxAcceleration float64      `yaml:"max_acceleration"`
	InitialPosition float64      `yaml:"initial_position"`
	PeriodMs        int          `yaml:"period_ms"`
	Steps           int          `yaml:"steps"`
	Output          string       `yaml:"output,omitempty"`
	Targets         []TargetStep `yaml:"targets"`
	Limits          []LimitStep  `yaml:"limits,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrScenario, "read scenario "+path).SetContext("file", path)
	}
	return Parse(data, path)
}

// Parse decodes and validates scenario YAML. name is used in errors.
func Parse(data []byte, name string) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.ScenarioError(name, fmt.Sprintf("decode: %v", err))
	}
	if err := sc.normalize(name); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) normalize(name string) error {
	if sc.Name == "" {
		sc.Name = name
	}
	if sc.PeriodMs == 0 {
		sc.PeriodMs = defaultPeriodMs
	}
	if sc.Steps == 0 {
		sc.Steps = defaultSteps
	}

	if !positive(sc.MaxVelocity) {
		return errors.ScenarioError(name, "max_velocity must be positive")
	}
	if !positive(sc.MaxAcceleration) {
		return errors.ScenarioError(name, "max_acceleration must be positive")
	}
	if !finite(sc.InitialPosition) {
		return errors.ScenarioError(name, "initial_position must be finite")
	}
	if sc.PeriodMs < 0 || sc.Steps < 0 {
		return errors.ScenarioError(name, "period_ms and steps must not be negative")
	}
	if len(sc.Targets) == 0 {
		return errors.ScenarioError(name, "at least one target is required")
	}
	for i, ts := range sc.Targets {
		if !finite(ts.Target) {
			return errors.ScenarioError(name, fmt.Sprintf("targets[%d] must be finite", i))
		}
	}
	for i, ls := range sc.Limits {
		if ls.MaxVelocity < 0 || ls.MaxAcceleration < 0 || !finite(ls.MaxVelocity) || !finite(ls.MaxAcceleration) {
			return errors.ScenarioError(name, fmt.Sprintf("limits[%d] must be positive", i))
		}
	}

	sort.SliceStable(sc.Targets, func(i, j int) bool { return sc.Targets[i].AtMs < sc.Targets[j].AtMs })
	sort.SliceStable(sc.Limits, func(i, j int) bool { return sc.Limits[i].AtMs < sc.Limits[j].AtMs })
	return nil
}

// Period returns the sampling period.
func (sc *Scenario) Period() time.Duration {
	return time.Duration(sc.PeriodMs) * time.Millisecond
}

// BaseLimits returns the limits the scenario starts with.
func (sc *Scenario) BaseLimits() config.Limits {
	return config.Limits{MaxVelocity: sc.MaxVelocity, MaxAcceleration: sc.MaxAcceleration}
}

// Schedule returns the timed changes of the scenario.
func (sc *Scenario) Schedule() Schedule {
	return Schedule{Targets: sc.Targets, Limits: sc.Limits}
}

func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
