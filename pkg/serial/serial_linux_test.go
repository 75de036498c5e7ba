//go:build linux

package serial

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"motiongen/pkg/sample"
)

// openPty returns the master fd and the slave path of a new pty.
func openPty(t *testing.T) (int, string) {
	t.Helper()
	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("no pty support: %v", err)
	}
	t.Cleanup(func() { unix.Close(master) })

	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("unlockpt: %v", err)
	}
	n, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	if err != nil {
		t.Skipf("ptsname: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestPortOverPty(t *testing.T) {
	master, slave := openPty(t)

	port, err := Open(Config{Device: slave})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if port.Baud() != DefaultBaud || port.Device() != slave {
		t.Errorf("port = %s @ %d", port.Device(), port.Baud())
	}

	termios, err := unix.IoctlGetTermios(port.fd, ioctlGetTermios)
	if err != nil {
		t.Fatal(err)
	}
	if termios.Lflag&unix.ICANON != 0 || termios.Oflag&unix.OPOST != 0 {
		t.Error("port not in raw mode")
	}
	if termios.Cflag&unix.CSIZE != unix.CS8 || termios.Cflag&unix.PARENB != 0 {
		t.Error("port not 8N1")
	}

	sw := NewSetpointWriter(port)
	if err := sw.WriteSample(sample.Sample{TimeMs: 100, Position: 0.005, Velocity: 0.1, Acceleration: 1}); err != nil {
		t.Fatal(err)
	}

	want := "T100 P0.005 V0.1 A1\n"
	got := make([]byte, 0, len(want))
	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < len(want) && time.Now().Before(deadline) {
		pfd := []unix.PollFd{{Fd: int32(master), Events: unix.POLLIN}}
		if n, _ := unix.Poll(pfd, 100); n == 0 {
			continue
		}
		n, err := unix.Read(master, buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != want {
		t.Errorf("master read %q, expected %q", got, want)
	}

	if err := port.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := port.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := port.Write([]byte("x")); err != ErrClosed {
		t.Errorf("Write after Close = %v", err)
	}
	if err := port.Flush(); err != ErrClosed {
		t.Errorf("Flush after Close = %v", err)
	}
}
