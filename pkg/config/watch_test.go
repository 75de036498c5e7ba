package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherPublishesChangedLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motiongen.cfg")
	writeFile(t, path, "[motion]\nmax_velocity: 2\nmax_acceleration: 1\n")

	w, err := NewWatcher(path, Limits{MaxVelocity: 2, MaxAcceleration: 1}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	writeFile(t, path, "[motion]\nmax_velocity: 4\nmax_acceleration: 1\n")

	select {
	case l := <-w.Limits:
		if l.MaxVelocity != 4 || l.MaxAcceleration != 1 {
			t.Errorf("limits = %+v", l)
		}
	case err := <-w.Errors:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for limits")
	}
}

func TestWatcherReportsInvalidLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motiongen.cfg")
	writeFile(t, path, "[motion]\nmax_velocity: 2\n")

	w, err := NewWatcher(path, Limits{MaxVelocity: 2, MaxAcceleration: 1}, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeFile(t, path, "[motion]\nmax_velocity: -1\n")

	select {
	case l := <-w.Limits:
		t.Fatalf("invalid limits published: %+v", l)
	case err := <-w.Errors:
		if err == nil {
			t.Error("expected non-nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motiongen.cfg")
	writeFile(t, path, "[motion]\nmax_velocity: 2\n")

	w, err := NewWatcher(path, Limits{MaxVelocity: 2, MaxAcceleration: 1}, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "other.cfg"), "[motion]\nmax_velocity: 9\n")

	select {
	case l := <-w.Limits:
		t.Fatalf("unexpected limits from unrelated file: %+v", l)
	case <-time.After(200 * time.Millisecond):
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, ok := <-w.Limits; ok {
		t.Error("Limits should be closed after Close")
	}
	w.Close()
}
