package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motiongen/pkg/errors"
)

func TestLoadString(t *testing.T) {
	data := `
# motiongen settings
[motion]
max_velocity: 2
max_acceleration = 1.5   # trailing comment
initial_position: -3

[run]
output: out.csv
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if !cfg.Has("motion") || !cfg.Has("run") {
		t.Fatalf("expected [motion] and [run], got %v", cfg.Names())
	}
	if cfg.Has("nonexistent") {
		t.Error("expected [nonexistent] section to not exist")
	}

	motion, err := cfg.Section("motion")
	if err != nil {
		t.Fatalf("Section(motion) failed: %v", err)
	}
	if motion.Name() != "motion" {
		t.Errorf("expected name 'motion', got '%s'", motion.Name())
	}

	v, err := motion.Int("max_velocity")
	if err != nil || v != 2 {
		t.Errorf("GetInt(max_velocity) = %d, %v", v, err)
	}
	a, err := motion.Float("max_acceleration")
	if err != nil || a != 1.5 {
		t.Errorf("GetFloat(max_acceleration) = %v, %v", a, err)
	}
	p, err := motion.Float("INITIAL_POSITION")
	if err != nil || p != -3 {
		t.Errorf("option lookup should be case-insensitive: %v, %v", p, err)
	}

	run, _ := cfg.Section("run")
	if out, _ := run.Text("output"); out != "out.csv" {
		t.Errorf("expected 'out.csv', got %q", out)
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty header", "[]\n"},
		{"bad line", "[motion]\nmax_velocity\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadString(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSectionGetters(t *testing.T) {
	cfg, err := LoadString(`
[test]
string_val: hello
int_val: 42
float_val: 2.5
bool_yes: yes
bool_off: off
bad_int: x
nan_val: nan
`)
	if err != nil {
		t.Fatal(err)
	}
	sec, _ := cfg.Section("test")

	if s, _ := sec.Text("string_val"); s != "hello" {
		t.Errorf("Text = %q", s)
	}
	if s, _ := sec.Text("missing", "fallback"); s != "fallback" {
		t.Errorf("Text fallback = %q", s)
	}
	if i, _ := sec.Int("int_val"); i != 42 {
		t.Errorf("Int = %d", i)
	}
	if f, _ := sec.Float("float_val"); f != 2.5 {
		t.Errorf("Float = %v", f)
	}
	if b, _ := sec.Bool("bool_yes"); !b {
		t.Error("Bool(yes) = false")
	}
	if b, _ := sec.Bool("bool_off"); b {
		t.Error("Bool(off) = true")
	}
	if _, err := sec.Int("bad_int"); err == nil {
		t.Error("expected error for bad integer")
	}
	if _, err := sec.Float("nan_val"); err == nil {
		t.Error("expected error for NaN")
	}
	if !sec.Has("int_val") || sec.Has("missing") {
		t.Error("Has mismatch")
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, _ := LoadString("[b]\nzero: 0\nten: 10\n")
	sec, _ := cfg.Section("b")

	if _, err := sec.FloatIn("zero", 1, Above(0)); err == nil {
		t.Error("expected error for value not above 0")
	}
	if v, err := sec.FloatIn("ten", 0, AtLeast(1), AtMost(10)); err != nil || v != 10 {
		t.Errorf("FloatIn(ten) = %v, %v", v, err)
	}
	if _, err := sec.IntIn("ten", 0, AtMost(5)); err == nil {
		t.Error("expected error for value above maximum")
	}
	if v, err := sec.IntIn("absent", 7, AtLeast(1)); err != nil || v != 7 {
		t.Errorf("IntIn(absent) = %v, %v", v, err)
	}

	_, err := sec.FloatIn("zero", 1, Above(0))
	var cerr *errors.Error
	if !stderrors.As(err, &cerr) || cerr.Code != errors.ErrConfig ||
		cerr.Param != "zero" || cerr.Context["section"] != "b" || cerr.Value != "0" {
		t.Errorf("expected config error for b.zero, got %+v", err)
	}
}

func TestMissingOptionError(t *testing.T) {
	cfg, _ := LoadString("[s]\n")
	sec, _ := cfg.Section("s")

	_, err := sec.Text("required")
	if err == nil {
		t.Fatal("expected error for missing option")
	}
	if !strings.Contains(err.Error(), "must be specified") {
		t.Errorf("unexpected error: %v", err)
	}
	if !errors.IsConfig(err) {
		t.Errorf("missing option is not a config error: %v", err)
	}

	if _, err := cfg.Section("nope"); !errors.IsConfig(err) {
		t.Errorf("expected config error for missing section, got %v", err)
	}
}

func TestAccessTracking(t *testing.T) {
	cfg, _ := LoadString(`
[motion]
max_velocity: 2
max_velocty: 3

[extra]
foo: bar
`)
	mc, err := ReadMotionConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"unknown section [extra]",
		"unknown option 'max_velocty' in [motion]",
	}
	if len(mc.Warnings) != len(expected) {
		t.Fatalf("warnings = %v, expected %v", mc.Warnings, expected)
	}
	for i, w := range expected {
		if mc.Warnings[i] != w {
			t.Errorf("warning %d = %q, expected %q", i, mc.Warnings[i], w)
		}
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "limits.cfg"), "[motion]\nmax_velocity: 4\n")
	main := filepath.Join(dir, "motiongen.cfg")
	writeFile(t, main, "[include limits.cfg]\n[motion]\nmax_acceleration: 3\n")

	mc, err := ParseMotionConfig(main)
	if err != nil {
		t.Fatal(err)
	}
	if mc.MaxVelocity != 4 || mc.MaxAcceleration != 3 {
		t.Errorf("limits = %+v", mc.Limits)
	}

	loop := filepath.Join(dir, "loop.cfg")
	writeFile(t, loop, "[include loop.cfg]\n")
	if _, err := Load(loop); err == nil || !strings.Contains(err.Error(), "recursive") {
		t.Errorf("expected recursive include error, got %v", err)
	}

	missing := filepath.Join(dir, "missing.cfg")
	writeFile(t, missing, "[include nothere.cfg]\n")
	if _, err := Load(missing); !errors.IsConfig(err) {
		t.Errorf("expected config error for missing include, got %v", err)
	}
}

func TestLoadErrorsAreCoded(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "absent.cfg")); !errors.IsConfig(err) || !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("open failure = %v", err)
	}

	_, err := LoadString("[motion]\nmax_velocity 2\n")
	var cerr *errors.Error
	if !stderrors.As(err, &cerr) || cerr.Code != errors.ErrConfig || cerr.Context["line"] != 2 {
		t.Errorf("syntax error = %+v", err)
	}
	if _, err := LoadString("[]\n"); !errors.IsConfig(err) {
		t.Errorf("empty header = %v", err)
	}
}

func TestDefaultMotionConfig(t *testing.T) {
	cfg, _ := LoadString("")
	mc, err := ReadMotionConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if mc.Run.Steps != 100 || mc.Run.Period != 100*time.Millisecond || mc.Run.Target != 10 {
		t.Errorf("run defaults = %+v", mc.Run)
	}
	if mc.Sweep.VelocityMin != 1 || mc.Sweep.VelocityMax != 10 ||
		mc.Sweep.AccelerationMin != 1 || mc.Sweep.AccelerationMax != 10 {
		t.Errorf("sweep defaults = %+v", mc.Sweep)
	}
	if mc.Serial.Baud != 115200 || mc.Server.Address != "" {
		t.Errorf("outer defaults: %+v %+v", mc.Serial, mc.Server)
	}
	if len(mc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", mc.Warnings)
	}
}

func TestReadMotionConfig(t *testing.T) {
	cfg, _ := LoadString(`
[motion]
max_velocity: 5
max_acceleration: 2
initial_position: 1

[run]
target: -4
period_ms: 20
steps: 50

[sweep]
velocity_min: 2
velocity_max: 3
acceleration_min: 1
acceleration_max: 4
output_dir: out
workers: 2

[server]
address: :7125
username: admin
password: secret

[serial]
device: /dev/ttyUSB0
baud: 250000
`)
	mc, err := ReadMotionConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if mc.Limits != (Limits{MaxVelocity: 5, MaxAcceleration: 2}) || mc.InitialPosition != 1 {
		t.Errorf("motion = %+v %v", mc.Limits, mc.InitialPosition)
	}
	if mc.Run.Target != -4 || mc.Run.Period != 20*time.Millisecond || mc.Run.Steps != 50 {
		t.Errorf("run = %+v", mc.Run)
	}
	if mc.Sweep != (SweepConfig{2, 3, 1, 4, "out", 2}) {
		t.Errorf("sweep = %+v", mc.Sweep)
	}
	if mc.Server.Address != ":7125" || mc.Server.Username != "admin" || mc.Server.Password != "secret" {
		t.Errorf("server = %+v", mc.Server)
	}
	if mc.Serial.Device != "/dev/ttyUSB0" || mc.Serial.Baud != 250000 {
		t.Errorf("serial = %+v", mc.Serial)
	}
}

func TestReadMotionConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero velocity", "[motion]\nmax_velocity: 0\n"},
		{"negative acceleration", "[motion]\nmax_acceleration: -1\n"},
		{"zero period", "[run]\nperiod_ms: 0\n"},
		{"inverted sweep", "[sweep]\nvelocity_min: 5\nvelocity_max: 2\n"},
		{"password without user", "[server]\npassword: x\n"},
		{"bad baud", "[serial]\nbaud: fast\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadString(tt.data)
			if err != nil {
				t.Fatal(err)
			}
			_, err = ReadMotionConfig(cfg)
			if !errors.IsConfig(err) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}
