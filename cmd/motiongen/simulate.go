// Simulated commands: run, sweep and scenario
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"flag"
	"os"
	"time"

	"motiongen/pkg/clock"
	"motiongen/pkg/config"
	"motiongen/pkg/log"
	"motiongen/pkg/motion"
	"motiongen/pkg/runner"
	"motiongen/pkg/sample"
	"motiongen/pkg/scenario"
	"motiongen/pkg/sweep"
)

// limitFlags are the generator overrides shared by run and live.
type limitFlags struct {
	vmax, amax, target float64
	initial            float64
	period             time.Duration
	steps              int
}

func addLimitFlags(fs *flag.FlagSet, defSteps int) *limitFlags {
	def := config.DefaultMotionConfig()
	lf := &limitFlags{}
	fs.Float64Var(&lf.vmax, "vmax", def.MaxVelocity, "Maximum velocity (units/s)")
	fs.Float64Var(&lf.amax, "amax", def.MaxAcceleration, "Maximum acceleration (units/s^2)")
	fs.Float64Var(&lf.target, "target", def.Run.Target, "Target position")
	fs.Float64Var(&lf.initial, "initial", def.InitialPosition, "Initial position")
	fs.DurationVar(&lf.period, "period", def.Run.Period, "Control period")
	fs.IntVar(&lf.steps, "steps", defSteps, "Number of ticks")
	return lf
}

// apply copies the flags set on the command line over mc.
func (lf *limitFlags) apply(set map[string]bool, mc *config.MotionConfig) {
	if set["vmax"] {
		mc.MaxVelocity = lf.vmax
	}
	if set["amax"] {
		mc.MaxAcceleration = lf.amax
	}
	if set["target"] {
		mc.Run.Target = lf.target
	}
	if set["initial"] {
		mc.InitialPosition = lf.initial
	}
	if set["period"] {
		mc.Run.Period = lf.period
	}
	if set["steps"] {
		mc.Run.Steps = lf.steps
	}
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	lf := addLimitFlags(fs, config.DefaultMotionConfig().Run.Steps)
	out := fs.String("out", "", "Output CSV file (default from config)")

	logger, mc, closer, code := parseCommand(fs, cf, args)
	if code != proceed {
		return code
	}
	defer closer()

	lf.apply(visited(fs), mc)
	if *out != "" {
		mc.Run.Output = *out
	}

	res, err := simulateToFile(logger, mc.Limits, mc.InitialPosition, mc.Run.Output, runner.Config{
		Period:  mc.Run.Period,
		Steps:   mc.Run.Steps,
		Targets: scenario.Constant(mc.Run.Target),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("run failed: %v", err)
		return exitError
	}
	logger.WithFields(log.Fields{
		"file":     mc.Run.Output,
		"rows":     res.Ticks,
		"final":    res.Last.Position,
		"finished": res.Last.Finished,
	}).Info("run written")
	return exitOK
}

func cmdSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	dir := fs.String("dir", "", "Output directory (default from config)")
	workers := fs.Int("workers", 0, "Parallel runs (default GOMAXPROCS)")

	logger, mc, closer, code := parseCommand(fs, cf, args)
	if code != proceed {
		return code
	}
	defer closer()

	cfg := sweep.FromMotionConfig(mc)
	cfg.Logger = logger
	if *dir != "" {
		cfg.Grid.OutputDir = *dir
	}
	if *workers > 0 {
		cfg.Grid.Workers = *workers
	}
	if err := os.MkdirAll(cfg.Grid.OutputDir, 0755); err != nil {
		logger.Error("create output directory: %v", err)
		return exitError
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, err := sweep.Run(ctx, cfg)
	if err != nil {
		logger.Error("sweep failed: %v", err)
		return exitError
	}

	finished := 0
	for _, r := range results {
		if r.Finished {
			finished++
		}
	}
	logger.WithFields(log.Fields{
		"files":    len(results),
		"finished": finished,
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("sweep written")
	return exitOK
}

func cmdScenario(args []string) int {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	file := fs.String("file", "", "Scenario YAML file (required)")
	out := fs.String("out", "", "Output CSV file (default from scenario)")
	stop := fs.Bool("stop", false, "Stop at the first finished tick after the last change")

	logger, _, closer, code := parseCommand(fs, cf, args)
	if code != proceed {
		return code
	}
	defer closer()

	if *file == "" {
		logger.Error("-file is required")
		return exitUsage
	}
	sc, err := scenario.Load(*file)
	if err != nil {
		logger.Error("load scenario: %v", err)
		return exitError
	}

	path := *out
	if path == "" {
		path = sc.Output
	}
	if path == "" {
		path = sc.Name + "_motion_output.csv"
	}

	res, err := simulateToFile(logger, sc.BaseLimits(), sc.InitialPosition, path, runner.Config{
		Period:           sc.Period(),
		Steps:            sc.Steps,
		Targets:          sc.Schedule(),
		StopWhenFinished: *stop,
		Logger:           logger,
	})
	if err != nil {
		logger.Error("scenario %s failed: %v", sc.Name, err)
		return exitError
	}
	logger.WithFields(log.Fields{
		"scenario": sc.Name,
		"file":     path,
		"rows":     res.Ticks,
		"reason":   res.Reason.String(),
		"final":    res.Last.Position,
	}).Info("scenario written")
	return exitOK
}

// simulateToFile runs one simulation from initial into a CSV table at path.
func simulateToFile(logger *log.Logger, limits config.Limits, initial float64, path string, cfg runner.Config) (runner.Result, error) {
	clk := clock.NewManual(0)
	gen, err := motion.New(limits.MaxVelocity, limits.MaxAcceleration, initial,
		motion.WithTimeSource(clk), motion.WithLogger(logger.WithPrefix("motion")))
	if err != nil {
		return runner.Result{}, err
	}

	w, err := sample.CreateCSV(path)
	if err != nil {
		return runner.Result{}, err
	}
	res, err := runner.Simulate(gen, clk, cfg, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return res, err
}
