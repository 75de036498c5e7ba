//go:build darwin

// Darwin baud rate handling
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package serial

import "golang.org/x/sys/unix"

var platformSpeeds = map[int]uint32{}

// setSpeed sets the baud rate on the termios struct for macOS.
func setSpeed(termios *unix.Termios, speed uint32) {
	termios.Ispeed = uint64(speed)
	termios.Ospeed = uint64(speed)
}

// setCustomBaudRate applies a non-standard rate with IOSSIOSPEED,
// _IOW('T', 2, speed_t).
func setCustomBaudRate(fd int, baud int) error {
	const iossiospeed = 0x80045402
	return unix.IoctlSetPointerInt(fd, iossiospeed, baud)
}

const supportsCustomBaud = true
