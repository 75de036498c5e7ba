// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// motiongen generates trapezoidal motion profiles toward a target position.
// It writes simulated runs and limit sweeps as CSV tables, plays YAML
// scenarios and drives a realtime control loop that can publish metrics,
// stream samples over websocket, write setpoints to a serial port and show
// a terminal view.
//
// Usage:
//
//	motiongen <command> [options]
//
// Commands:
//
//	run       simulate one move and write a CSV table
//	sweep     simulate the velocity/acceleration grid, one table per cell
//	scenario  simulate a YAML schedule of targets and limits
//	live      run the control loop in real time
//
// Common options:
//
//	-config string    motiongen configuration file
//	-logfile string   Log file path (default: stderr)
//	-loglevel string  DEBUG, INFO, WARN or ERROR (default "INFO")
//
// Examples:
//
//	# The original 100-step demo move to motion_output.csv
//	motiongen run
//
//	# All 100 limit combinations into ./out
//	motiongen sweep -dir out
//
//	# Live loop with metrics and websocket on :9100 and a terminal view
//	motiongen live -config motion.cfg -listen :9100 -tui -watch
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"motiongen/pkg/config"
	"motiongen/pkg/log"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	// proceed means parseCommand succeeded.
	proceed = -1
)

type command struct {
	name  string
	short string
	run   func(args []string) int
}

var commands = []command{
	{"run", "simulate one move and write a CSV table", cmdRun},
	{"sweep", "simulate the velocity/acceleration grid", cmdSweep},
	{"scenario", "simulate a YAML schedule of targets and limits", cmdScenario},
	{"live", "run the control loop in real time", cmdLive},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
		return exitOK
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:])
		}
	}
	fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
	usage(os.Stderr)
	return exitUsage
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: motiongen <command> [options]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.short)
	}
	fmt.Fprintf(w, "\nRun 'motiongen <command> -h' for the options of a command.\n")
}

// commonFlags are accepted by every command.
type commonFlags struct {
	config   string
	logFile  string
	logLevel string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.config, "config", "", "motiongen configuration file")
	fs.StringVar(&cf.logFile, "logfile", "", "Log file path (default: stderr)")
	fs.StringVar(&cf.logLevel, "loglevel", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	return cf
}

// setupLogging installs the root logger. The returned function closes the
// log file, if any.
func (cf *commonFlags) setupLogging() (*log.Logger, func(), error) {
	logger := log.New("motiongen")
	closer := func() {}
	if cf.logFile != "" {
		l, w, err := log.NewFileLogger("motiongen", log.RotationConfig{
			Filename: cf.logFile,
			Compress: true,
		})
		if err != nil {
			return nil, nil, err
		}
		logger = l
		closer = func() { w.Close() }
	}
	log.ConfigureFromEnv(logger)
	logger.SetLevel(log.ParseLevel(cf.logLevel))
	log.SetDefaultLogger(logger)
	return logger, closer, nil
}

// loadConfig reads the configuration file, or the defaults when none is
// given.
func (cf *commonFlags) loadConfig(logger *log.Logger) (*config.MotionConfig, error) {
	if cf.config == "" {
		return config.DefaultMotionConfig(), nil
	}
	mc, err := config.ParseMotionConfig(cf.config)
	if err != nil {
		return nil, err
	}
	for _, w := range mc.Warnings {
		logger.Warn("config: %s", w)
	}
	logger.Info("Config: %s", cf.config)
	return mc, nil
}

// parseCommand parses args and prepares logging and configuration.
func parseCommand(fs *flag.FlagSet, cf *commonFlags, args []string) (*log.Logger, *config.MotionConfig, func(), int) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, nil, exitOK
		}
		return nil, nil, nil, exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %v\n", fs.Args())
		fs.Usage()
		return nil, nil, nil, exitUsage
	}

	logger, closer, err := cf.setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return nil, nil, nil, exitError
	}
	mc, err := cf.loadConfig(logger)
	if err != nil {
		logger.Error("Error parsing config: %v", err)
		closer()
		return nil, nil, nil, exitError
	}
	return logger, mc, closer, proceed
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
