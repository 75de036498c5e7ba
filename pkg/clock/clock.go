// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package clock provides the monotonic millisecond time sources used to
// evaluate motion profiles.
package clock

import (
	"sync"
	"time"
)

// TimeSource supplies monotonically non-decreasing milliseconds elapsed
// since an arbitrary fixed epoch. Wraparound of the uint64 counter is not
// handled.
type TimeSource interface {
	ElapsedMillis() uint64
}

// System is a TimeSource backed by the Go monotonic clock. The epoch is
// the moment the System was created.
type System struct {
	start time.Time
}

// NewSystem creates a System clock starting now.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// ElapsedMillis returns milliseconds since the clock was created.
func (s *System) ElapsedMillis() uint64 {
	return uint64(time.Since(s.start).Milliseconds())
}

// Manual is a TimeSource that only moves when told to. It is safe for use
// from multiple goroutines.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

// NewManual creates a Manual clock reading start milliseconds.
func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

// ElapsedMillis returns the current manual reading.
func (m *Manual) ElapsedMillis() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, truncated to whole milliseconds.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceMillis(uint64(d.Milliseconds()))
}

// AdvanceMillis moves the clock forward by ms milliseconds.
func (m *Manual) AdvanceMillis(ms uint64) {
	m.mu.Lock()
	m.now += ms
	m.mu.Unlock()
}

// Set moves the clock to ms. Readings never go backward, so a value below
// the current reading is ignored.
func (m *Manual) Set(ms uint64) {
	m.mu.Lock()
	if ms > m.now {
		m.now = ms
	}
	m.mu.Unlock()
}
