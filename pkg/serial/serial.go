// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package serial writes generator setpoints to a raw tty, for driving an
// external axis controller or a logic analyser.
package serial

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"motiongen/pkg/errors"
)

// ErrClosed is returned by operations on a closed port.
var ErrClosed = stderrors.New("serial: port closed")

// DefaultBaud is used when Config.Baud is zero.
const DefaultBaud = 115200

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., /dev/ttyUSB0, /dev/ttyACM0)
	Device string
	Baud   int
}

// Port is an open tty in raw 8N1 mode. Writes are serialized.
type Port struct {
	mu         sync.Mutex
	fd         int
	device     string
	baud       int
	closed     bool
	oldTermios *unix.Termios
}

// ListPorts returns the serial devices present on this machine.
func ListPorts() ([]string, error) {
	var patterns []string
	switch runtime.GOOS {
	case "linux":
		patterns = []string{
			"/dev/ttyUSB*",
			"/dev/ttyACM*",
			"/dev/serial/by-id/*",
		}
	case "darwin":
		patterns = []string{
			"/dev/cu.usbserial*",
			"/dev/cu.usbmodem*",
		}
	default:
		return nil, errors.TransportError("list ports", fmt.Errorf("unsupported platform %s", runtime.GOOS))
	}

	seen := make(map[string]bool)
	var ports []string
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			// by-id entries are symlinks to the real node
			resolved, err := filepath.EvalSymlinks(m)
			if err != nil {
				resolved = m
			}
			if !seen[resolved] {
				seen[resolved] = true
				ports = append(ports, resolved)
			}
		}
	}
	sort.Strings(ports)
	return ports, nil
}

// Open opens and configures the device.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.TransportError("open", stderrors.New("device path required"))
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	op := "open " + cfg.Device

	speed, customBaud, err := baudRateToSpeed(cfg.Baud)
	if err != nil {
		return nil, errors.TransportError(op, err)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.TransportError(op, err)
	}

	oldTermios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		unix.Close(fd)
		return nil, errors.TransportError(op, fmt.Errorf("get termios: %w", err))
	}

	termios := *oldTermios
	makeRaw(&termios)
	setSpeed(&termios, speed)

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &termios); err != nil {
		unix.Close(fd)
		return nil, errors.TransportError(op, fmt.Errorf("set termios: %w", err))
	}
	if customBaud > 0 {
		if err := setCustomBaudRate(fd, customBaud); err != nil {
			unix.Close(fd)
			return nil, errors.TransportError(op, fmt.Errorf("set custom baud rate: %w", err))
		}
	}

	// Writes block once configured
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, errors.TransportError(op, fmt.Errorf("set blocking: %w", err))
	}

	return &Port{
		fd:         fd,
		device:     cfg.Device,
		baud:       cfg.Baud,
		oldTermios: oldTermios,
	}, nil
}

// makeRaw disables all line processing and selects 8N1.
func makeRaw(termios *unix.Termios) {
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 1
}

// Write writes buf to the port.
func (p *Port) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}

	written := 0
	for written < len(buf) {
		n, err := unix.Write(p.fd, buf[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return written, errors.TransportError("write "+p.device, err)
		}
		written += n
	}
	return written, nil
}

// Flush discards any data in the input and output buffers.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return unix.IoctlSetInt(p.fd, ioctlTCFlush, unix.TCIOFLUSH)
}

// Close restores the original line settings and closes the device.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.oldTermios != nil {
		_ = unix.IoctlSetTermios(p.fd, ioctlSetTermios, p.oldTermios)
	}
	return unix.Close(p.fd)
}

// Device returns the device path.
func (p *Port) Device() string {
	return p.device
}

// Baud returns the configured rate.
func (p *Port) Baud() int {
	return p.baud
}

// baudRateToSpeed converts a baud rate to a speed constant. customBaud > 0
// means the rate must be applied with setCustomBaudRate after TCSETS.
func baudRateToSpeed(baud int) (speed uint32, customBaud int, err error) {
	speeds := map[int]uint32{
		1200:   unix.B1200,
		2400:   unix.B2400,
		4800:   unix.B4800,
		9600:   unix.B9600,
		19200:  unix.B19200,
		38400:  unix.B38400,
		57600:  unix.B57600,
		115200: unix.B115200,
		230400: unix.B230400,
	}
	if s, ok := speeds[baud]; ok {
		return s, 0, nil
	}
	if s, ok := platformSpeeds[baud]; ok {
		return s, 0, nil
	}
	if supportsCustomBaud && baud > 0 {
		return unix.B9600, baud, nil
	}
	return 0, 0, fmt.Errorf("unsupported baud rate %d", baud)
}
