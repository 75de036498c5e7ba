package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	m := NewManual(0)
	if m.ElapsedMillis() != 0 {
		t.Fatalf("expected 0, got %d", m.ElapsedMillis())
	}

	m.Advance(100 * time.Millisecond)
	m.AdvanceMillis(25)
	if got := m.ElapsedMillis(); got != 125 {
		t.Errorf("expected 125, got %d", got)
	}

	// Sub-millisecond durations truncate
	m.Advance(500 * time.Microsecond)
	if got := m.ElapsedMillis(); got != 125 {
		t.Errorf("expected 125 after sub-ms advance, got %d", got)
	}
}

func TestManualSetNeverGoesBackward(t *testing.T) {
	m := NewManual(1000)
	m.Set(500)
	if got := m.ElapsedMillis(); got != 1000 {
		t.Errorf("clock went backward: %d", got)
	}
	m.Set(2000)
	if got := m.ElapsedMillis(); got != 2000 {
		t.Errorf("expected 2000, got %d", got)
	}
}

func TestSystemMonotonic(t *testing.T) {
	s := NewSystem()
	t1 := s.ElapsedMillis()
	time.Sleep(15 * time.Millisecond)
	t2 := s.ElapsedMillis()

	if t2 < t1 {
		t.Fatalf("system clock went backward: %d < %d", t2, t1)
	}
	if t2-t1 < 10 {
		t.Errorf("expected at least 10ms elapsed, got %d", t2-t1)
	}
}

func TestInterface(t *testing.T) {
	var _ TimeSource = NewSystem()
	var _ TimeSource = NewManual(0)
}
