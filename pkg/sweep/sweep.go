// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package sweep runs the simulated move over a grid of integer velocity
// and acceleration limits, one CSV table per grid point.
package sweep

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"motiongen/pkg/clock"
	"motiongen/pkg/config"
	"motiongen/pkg/errors"
	"motiongen/pkg/log"
	"motiongen/pkg/motion"
	"motiongen/pkg/runner"
	"motiongen/pkg/sample"
	"motiongen/pkg/scenario"
)

// Config describes a sweep.
type Config struct {
	Grid            config.SweepConfig
	Target          float64
	InitialPosition float64
	Period          time.Duration
	Steps           int
	Logger          *log.Logger
}

// FromMotionConfig builds a sweep from a parsed config file.
func FromMotionConfig(mc *config.MotionConfig) Config {
	return Config{
		Grid:            mc.Sweep,
		Target:          mc.Run.Target,
		InitialPosition: mc.InitialPosition,
		Period:          mc.Run.Period,
		Steps:           mc.Run.Steps,
	}
}

// Point is one grid cell.
type Point struct {
	Index           int
	MaxVelocity     int
	MaxAcceleration int
}

// Result describes one finished run.
type Result struct {
	Index           int
	MaxVelocity     int
	MaxAcceleration int
	Path            string
	Final           float64
	Finished        bool
	// Duration is the planned move time.
	Duration time.Duration
}

// Points lists the grid in velocity-major order. Index starts at 1.
func Points(g config.SweepConfig) ([]Point, error) {
	if g.VelocityMin < 1 || g.AccelerationMin < 1 {
		return nil, errors.New(errors.ErrConfig, "sweep limits must start at 1 or more")
	}
	if g.VelocityMax < g.VelocityMin || g.AccelerationMax < g.AccelerationMin {
		return nil, errors.New(errors.ErrConfig, "sweep maximum below minimum")
	}

	var pts []Point
	index := 1
	for v := g.VelocityMin; v <= g.VelocityMax; v++ {
		for a := g.AccelerationMin; a <= g.AccelerationMax; a++ {
			pts = append(pts, Point{Index: index, MaxVelocity: v, MaxAcceleration: a})
			index++
		}
	}
	return pts, nil
}

// Run executes the sweep. Runs are independent and execute in parallel up
// to Grid.Workers at a time; the first failure cancels the rest.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	pts, err := Points(cfg.Grid)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("sweep")
	}

	workers := cfg.Grid.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(pts))
	)
	for _, pt := range pts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := runPoint(cfg, pt, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	logger.WithFields(log.Fields{
		"runs":    len(results),
		"workers": workers,
		"dir":     cfg.Grid.OutputDir,
	}).Info("sweep complete")
	return results, nil
}

func runPoint(cfg Config, pt Point, logger *log.Logger) (Result, error) {
	clk := clock.NewManual(0)
	gen, err := motion.New(float64(pt.MaxVelocity), float64(pt.MaxAcceleration), cfg.InitialPosition,
		motion.WithTimeSource(clk), motion.WithLogger(logger.WithPrefix("motion")))
	if err != nil {
		return Result{}, err
	}

	path := filepath.Join(cfg.Grid.OutputDir, sample.SweepFileName(pt.Index, pt.MaxVelocity, pt.MaxAcceleration))
	w, err := sample.CreateCSV(path)
	if err != nil {
		return Result{}, err
	}

	res, err := runner.Simulate(gen, clk, runner.Config{
		Period:  cfg.Period,
		Steps:   cfg.Steps,
		Targets: scenario.Constant(cfg.Target),
		Logger:  logger,
	}, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, err
	}

	logger.WithFields(log.Fields{
		"file":     filepath.Base(path),
		"final":    res.Last.Position,
		"finished": res.Last.Finished,
	}).Debug("run written")

	return Result{
		Index:           pt.Index,
		MaxVelocity:     pt.MaxVelocity,
		MaxAcceleration: pt.MaxAcceleration,
		Path:            path,
		Final:           res.Last.Position,
		Finished:        res.Last.Finished,
		Duration:        time.Duration(gen.Plan().Total() * float64(time.Second)),
	}, nil
}
