// motiongen configuration sections
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"
	"time"

	"motiongen/pkg/errors"
)

// Limits are the generator limits read from [motion].
type Limits struct {
	MaxVelocity     float64
	MaxAcceleration float64
}

// RunConfig is the [run] section: one simulated move.
type RunConfig struct {
	Target float64
	Period time.Duration
	Steps  int
	Output string
}

// SweepConfig is the [sweep] section: the integer limit grid.
type SweepConfig struct {
	VelocityMin     int
	VelocityMax     int
	AccelerationMin int
	AccelerationMax int
	OutputDir       string
	Workers         int // 0 means GOMAXPROCS
}

// ServerConfig is the [server] section. An empty Address disables it.
type ServerConfig struct {
	Address  string
	Username string
	Password string
}

// SerialConfig is the [serial] section. An empty Device disables it.
type SerialConfig struct {
	Device string
	Baud   int
}

// MotionConfig is the full motiongen configuration.
type MotionConfig struct {
	Limits
	InitialPosition float64

	Run    RunConfig
	Sweep  SweepConfig
	Server ServerConfig
	Serial SerialConfig

	// Warnings lists unknown sections and options.
	Warnings []string
}

// DefaultMotionConfig returns the settings used when no file is given:
// the 10x10 demo grid, 100 steps of 100ms toward 10.
func DefaultMotionConfig() *MotionConfig {
	return &MotionConfig{
		Limits:          Limits{MaxVelocity: 1, MaxAcceleration: 1},
		InitialPosition: 0,
		Run: RunConfig{
			Target: 10,
			Period: 100 * time.Millisecond,
			Steps:  100,
			Output: "motion_output.csv",
		},
		Sweep: SweepConfig{
			VelocityMin:     1,
			VelocityMax:     10,
			AccelerationMin: 1,
			AccelerationMax: 10,
			OutputDir:       ".",
		},
		Serial: SerialConfig{Baud: 115200},
	}
}

// ParseMotionConfig loads path and reads the motiongen sections from it.
func ParseMotionConfig(path string) (*MotionConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ReadMotionConfig(cfg)
}

// ReadMotionConfig reads the motiongen sections from a loaded Config. Missing
// sections and options keep their defaults.
func ReadMotionConfig(cfg *Config) (*MotionConfig, error) {
	mc := DefaultMotionConfig()

	if sec := cfg.Lookup("motion"); sec != nil {
		limits, err := readLimits(sec, mc.Limits)
		if err != nil {
			return nil, err
		}
		mc.Limits = limits
		if mc.InitialPosition, err = sec.Float("initial_position", mc.InitialPosition); err != nil {
			return nil, err
		}
	}

	if sec := cfg.Lookup("run"); sec != nil {
		if err := readRun(sec, &mc.Run); err != nil {
			return nil, err
		}
	}

	if sec := cfg.Lookup("sweep"); sec != nil {
		if err := readSweep(sec, &mc.Sweep); err != nil {
			return nil, err
		}
	}

	if sec := cfg.Lookup("server"); sec != nil {
		var err error
		if mc.Server.Address, err = sec.Text("address", ""); err != nil {
			return nil, err
		}
		if mc.Server.Username, err = sec.Text("username", ""); err != nil {
			return nil, err
		}
		if mc.Server.Password, err = sec.Text("password", ""); err != nil {
			return nil, err
		}
		if mc.Server.Password != "" && mc.Server.Username == "" {
			return nil, errors.ConfigError("server", "username", "username must be set when password is set")
		}
	}

	if sec := cfg.Lookup("serial"); sec != nil {
		var err error
		if mc.Serial.Device, err = sec.Text("device", ""); err != nil {
			return nil, err
		}
		if mc.Serial.Baud, err = sec.IntIn("baud", mc.Serial.Baud, AtLeast(1)); err != nil {
			return nil, err
		}
	}

	mc.Warnings = cfg.UnusedWarnings()
	return mc, nil
}

// ReadLimits reads only the [motion] limits, for hot reload.
func ReadLimits(cfg *Config, current Limits) (Limits, error) {
	sec := cfg.Lookup("motion")
	if sec == nil {
		return current, nil
	}
	return readLimits(sec, current)
}

func readLimits(sec *Section, current Limits) (Limits, error) {
	v, err := sec.FloatIn("max_velocity", current.MaxVelocity, Above(0))
	if err != nil {
		return current, err
	}
	a, err := sec.FloatIn("max_acceleration", current.MaxAcceleration, Above(0))
	if err != nil {
		return current, err
	}
	return Limits{MaxVelocity: v, MaxAcceleration: a}, nil
}

func readRun(sec *Section, run *RunConfig) error {
	var err error
	if run.Target, err = sec.Float("target", run.Target); err != nil {
		return err
	}
	periodMs, err := sec.IntIn("period_ms", int(run.Period/time.Millisecond), AtLeast(1))
	if err != nil {
		return err
	}
	run.Period = time.Duration(periodMs) * time.Millisecond
	if run.Steps, err = sec.IntIn("steps", run.Steps, AtLeast(1)); err != nil {
		return err
	}
	if run.Output, err = sec.Text("output", run.Output); err != nil {
		return err
	}
	return nil
}

func readSweep(sec *Section, sw *SweepConfig) error {
	var err error
	if sw.VelocityMin, err = sec.IntIn("velocity_min", sw.VelocityMin, AtLeast(1)); err != nil {
		return err
	}
	if sw.VelocityMax, err = sec.IntIn("velocity_max", sw.VelocityMax, AtLeast(float64(sw.VelocityMin))); err != nil {
		return err
	}
	if sw.AccelerationMin, err = sec.IntIn("acceleration_min", sw.AccelerationMin, AtLeast(1)); err != nil {
		return err
	}
	if sw.AccelerationMax, err = sec.IntIn("acceleration_max", sw.AccelerationMax, AtLeast(float64(sw.AccelerationMin))); err != nil {
		return err
	}
	if sw.OutputDir, err = sec.Text("output_dir", sw.OutputDir); err != nil {
		return err
	}
	if sw.Workers, err = sec.IntIn("workers", sw.Workers, AtLeast(0)); err != nil {
		return err
	}
	if sw.OutputDir == "" {
		return errors.ConfigError("sweep", "output_dir", "output_dir must not be empty")
	}
	return nil
}

// String summarizes the limits for log lines.
func (l Limits) String() string {
	return fmt.Sprintf("max_velocity=%g max_acceleration=%g", l.MaxVelocity, l.MaxAcceleration)
}
