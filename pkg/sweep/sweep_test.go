package sweep

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motiongen/pkg/config"
	"motiongen/pkg/errors"
	"motiongen/pkg/log"
)

func testConfig(dir string) Config {
	l := log.New("sweep")
	l.SetWriter(&bytes.Buffer{})
	return Config{
		Grid: config.SweepConfig{
			VelocityMin: 1, VelocityMax: 2,
			AccelerationMin: 1, AccelerationMax: 2,
			OutputDir: dir,
			Workers:   2,
		},
		Target: 10,
		Period: 100 * time.Millisecond,
		Steps:  100,
		Logger: l,
	}
}

func TestPoints(t *testing.T) {
	pts, err := Points(config.SweepConfig{VelocityMin: 1, VelocityMax: 10, AccelerationMin: 1, AccelerationMax: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 100 {
		t.Fatalf("got %d points, expected 100", len(pts))
	}
	if pts[0] != (Point{1, 1, 1}) || pts[1] != (Point{2, 1, 2}) || pts[10] != (Point{11, 2, 1}) || pts[99] != (Point{100, 10, 10}) {
		t.Errorf("unexpected ordering: %v %v %v %v", pts[0], pts[1], pts[10], pts[99])
	}
}

func TestPointsInvalid(t *testing.T) {
	tests := []config.SweepConfig{
		{VelocityMin: 0, VelocityMax: 1, AccelerationMin: 1, AccelerationMax: 1},
		{VelocityMin: 1, VelocityMax: 1, AccelerationMin: 0, AccelerationMax: 1},
		{VelocityMin: 3, VelocityMax: 2, AccelerationMin: 1, AccelerationMax: 1},
		{VelocityMin: 1, VelocityMax: 1, AccelerationMin: 2, AccelerationMax: 1},
	}
	for _, g := range tests {
		if _, err := Points(g); !errors.Is(err, errors.ErrConfig) {
			t.Errorf("Points(%+v) = %v, expected CONFIG error", g, err)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	results, err := Run(context.Background(), testConfig(dir))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, expected 4", len(results))
	}

	expected := []struct {
		v, a     int
		finished bool
		duration time.Duration
	}{
		{1, 1, false, 11 * time.Second},
		{1, 2, false, 10500 * time.Millisecond},
		{2, 1, true, 7 * time.Second},
		{2, 2, true, 6 * time.Second},
	}
	for i, want := range expected {
		r := results[i]
		if r.Index != i+1 || r.MaxVelocity != want.v || r.MaxAcceleration != want.a {
			t.Errorf("result %d = %+v", i, r)
		}
		if r.Finished != want.finished {
			t.Errorf("run %d finished = %v, expected %v", r.Index, r.Finished, want.finished)
		}
		if d := r.Duration - want.duration; d < -time.Microsecond || d > time.Microsecond {
			t.Errorf("run %d duration = %v, expected %v", r.Index, r.Duration, want.duration)
		}
		if want.finished && r.Final != 10 {
			t.Errorf("run %d final = %v, expected 10", r.Index, r.Final)
		}
	}

	path := filepath.Join(dir, "003_maxVelocity_2_maxAcceleration_1_motion_output.csv")
	if results[2].Path != path {
		t.Errorf("path = %s", results[2].Path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 101 {
		t.Fatalf("table has %d lines, expected 101", len(lines))
	}
	if lines[0] != "Time(ms),Position" || lines[1] != "0,0" || lines[11] != "1000,0.5" || lines[100] != "9900,10" {
		t.Errorf("unexpected rows: %q %q %q %q", lines[0], lines[1], lines[11], lines[100])
	}
}

func TestRunMissingDir(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing"))
	if _, err := Run(context.Background(), cfg); !errors.Is(err, errors.ErrSampleIO) {
		t.Errorf("expected SAMPLE_IO error, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, testConfig(t.TempDir())); !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFromMotionConfig(t *testing.T) {
	mc := config.DefaultMotionConfig()
	cfg := FromMotionConfig(mc)
	if cfg.Target != 10 || cfg.Steps != 100 || cfg.Period != 100*time.Millisecond {
		t.Errorf("unexpected run settings: %+v", cfg)
	}
	if cfg.Grid.VelocityMax != 10 || cfg.Grid.AccelerationMax != 10 {
		t.Errorf("unexpected grid: %+v", cfg.Grid)
	}
}
