// Realtime command: live
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"context"
	"flag"
	"io"
	"math"
	"time"

	"motiongen/pkg/config"
	"motiongen/pkg/log"
	"motiongen/pkg/metrics"
	"motiongen/pkg/motion"
	"motiongen/pkg/reactor"
	"motiongen/pkg/runner"
	"motiongen/pkg/scenario"
	"motiongen/pkg/serial"
	"motiongen/pkg/stream"
	"motiongen/pkg/view"
)

func cmdLive(args []string) int {
	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	cf := addCommonFlags(fs)
	lf := addLimitFlags(fs, 0)
	listen := fs.String("listen", "", "Metrics and websocket address, e.g. :9100 (default from config)")
	device := fs.String("serial", "", "Serial device for setpoint output (default from config)")
	baud := fs.Int("baud", 0, "Serial baud rate (default from config)")
	tui := fs.Bool("tui", false, "Show the terminal view")
	watch := fs.Bool("watch", false, "Reload [motion] limits when the config file changes")
	stop := fs.Bool("stop", false, "Stop when the move has finished")

	logger, mc, closer, code := parseCommand(fs, cf, args)
	if code != proceed {
		return code
	}
	defer closer()

	set := visited(fs)
	lf.apply(set, mc)
	if !set["steps"] {
		// Without -steps the loop runs until interrupted.
		mc.Run.Steps = 0
	}
	if *listen != "" {
		mc.Server.Address = *listen
	}
	if *device != "" {
		mc.Serial.Device = *device
	}
	if *baud > 0 {
		mc.Serial.Baud = *baud
	}
	if *watch && cf.config == "" {
		logger.Error("-watch requires -config")
		return exitUsage
	}
	if *tui && cf.logFile == "" {
		// The view owns the terminal.
		logger.SetWriter(io.Discard)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := live(ctx, logger, mc, liveOptions{
		configPath:       cf.config,
		tui:              *tui,
		watch:            *watch,
		stopWhenFinished: *stop,
	}); err != nil {
		logger.Error("live: %v", err)
		return exitError
	}
	return exitOK
}

type liveOptions struct {
	configPath       string
	tui              bool
	watch            bool
	stopWhenFinished bool
}

// live runs the realtime loop with every configured output until the loop
// ends or ctx is cancelled.
func live(ctx context.Context, logger *log.Logger, mc *config.MotionConfig, opts liveOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := reactor.NewWithContext(ctx)
	r.Run()
	defer r.End()

	gen, err := motion.New(mc.MaxVelocity, mc.MaxAcceleration, mc.InitialPosition,
		motion.WithTimeSource(r), motion.WithLogger(logger.WithPrefix("motion")))
	if err != nil {
		return err
	}

	mm := metrics.NewMotionMetrics()
	var sinks []runner.Sink

	if mc.Server.Address != "" {
		hub := stream.NewHub()
		hub.SetLogger(logger.WithPrefix("stream"))
		hub.OnClients = func(n int) { mm.StreamConns.Set(float64(n)) }
		defer hub.Close()

		scfg := metrics.DefaultServerConfig()
		scfg.Address = mc.Server.Address
		scfg.Username = mc.Server.Username
		scfg.Password = mc.Server.Password
		scfg.StaleAfter = 10 * mc.Run.Period
		srv := metrics.NewServer(mm, scfg)
		hub.Register(srv.Router())

		errCh := srv.StartAsync()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				logger.Error("server: %v", err)
				cancel()
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("server shutdown: %v", err)
			}
		}()
		sinks = append(sinks, hub)
	}

	if mc.Serial.Device != "" {
		port, err := serial.Open(serial.Config{Device: mc.Serial.Device, Baud: mc.Serial.Baud})
		if err != nil {
			return err
		}
		defer port.Close()
		logger.Info("Serial: %s @ %d", port.Device(), port.Baud())
		sinks = append(sinks, serial.NewSetpointWriter(port))
	}

	cfg := runner.Config{
		Period:           mc.Run.Period,
		Steps:            mc.Run.Steps,
		Targets:          scenario.Constant(mc.Run.Target),
		StopWhenFinished: opts.stopWhenFinished,
		Recorder:         mm,
		Logger:           logger.WithPrefix("runner"),
	}

	if opts.watch {
		w, err := config.NewWatcher(opts.configPath, mc.Limits, 0)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() {
			for err := range w.Errors {
				logger.Warn("config reload: %v", err)
			}
		}()
		cfg.LimitUpdates = w.Limits
	}

	var v *view.View
	if opts.tui {
		screen, err := view.NewScreen()
		if err != nil {
			return err
		}
		v = view.New(screen, math.Min(mc.InitialPosition, mc.Run.Target), math.Max(mc.InitialPosition, mc.Run.Target))
		sinks = append(sinks, v)
	}

	loop, err := runner.NewLoop(r, gen, cfg, sinks...)
	if err != nil {
		if v != nil {
			v.Close()
		}
		return err
	}

	if v != nil {
		v.OnNudge = func(target float64) {
			if err := loop.SetTarget(target); err != nil {
				logger.Warn("set target: %v", err)
			}
		}
		viewDone := make(chan struct{})
		go func() {
			defer close(viewDone)
			v.Run(ctx)
			cancel()
		}()
		// The terminal is restored before returning.
		defer func() {
			cancel()
			<-viewDone
		}()
	}

	res, err := loop.Run(ctx)
	logger.WithFields(log.Fields{
		"ticks":    res.Ticks,
		"reason":   res.Reason.String(),
		"position": res.Last.Position,
		"finished": res.Last.Finished,
	}).Info("control loop stopped")
	return err
}
