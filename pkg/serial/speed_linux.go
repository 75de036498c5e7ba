//go:build linux

// Linux baud rate handling
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package serial

import "golang.org/x/sys/unix"

// High rates only Linux defines as B constants.
var platformSpeeds = map[int]uint32{
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
}

// setSpeed stores the rate in the CBAUD bits, which TCSETS reads, and in
// the speed fields.
func setSpeed(termios *unix.Termios, speed uint32) {
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= speed
	termios.Ispeed = speed
	termios.Ospeed = speed
}

// setCustomBaudRate is not needed on Linux; every accepted rate has a
// B constant.
func setCustomBaudRate(fd int, baud int) error {
	return nil
}

const supportsCustomBaud = false
