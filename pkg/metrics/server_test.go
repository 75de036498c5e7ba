// Unit tests for metrics HTTP server
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"motiongen/pkg/motion"
	"motiongen/pkg/sample"
)

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Address != ":9100" {
		t.Errorf("expected default address :9100, got %s", cfg.Address)
	}
	if cfg.ReadTimeout != 10*time.Second || cfg.WriteTimeout != 10*time.Second {
		t.Error("unexpected timeouts")
	}
}

func TestHandleMetrics(t *testing.T) {
	m := NewMotionMetrics()
	m.RecordTick(sample.Sample{Target: 10, Position: 2.5}, motion.PlanMove(0, 0, 10, 2, 1, 0), true, time.Microsecond)
	server := NewServer(m, DefaultServerConfig())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"motiongen_updates_total 1",
		"motiongen_position 2.5",
		`motiongen_replans_total{shape="trapezoid"} 1`,
		"motiongen_plan_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsMethodNotAllowed(t *testing.T) {
	server := NewServer(NewMotionMetrics(), DefaultServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Username = "admin"
	cfg.Password = "secret"
	server := NewServer(NewMotionMetrics(), cfg)

	tests := []struct {
		name     string
		user     string
		pass     string
		setAuth  bool
		expected int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "wrong", true, http.StatusUnauthorized},
		{"wrong user", "root", "secret", true, http.StatusUnauthorized},
		{"valid", "admin", "secret", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, req)
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
			if tt.expected == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}

	// Health checks stay open
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/health behind auth: %d", w.Code)
	}
}

func TestHandleReady(t *testing.T) {
	m := NewMotionMetrics()
	cfg := DefaultServerConfig()
	cfg.StaleAfter = time.Minute
	server := NewServer(m, cfg)

	ready := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		return w.Code
	}

	if code := ready(); code != http.StatusServiceUnavailable {
		t.Errorf("not started: expected 503, got %d", code)
	}

	server.mu.Lock()
	server.running = true
	server.mu.Unlock()
	if code := ready(); code != http.StatusServiceUnavailable {
		t.Errorf("no ticks yet: expected 503, got %d", code)
	}

	m.RecordTick(sample.Sample{}, motion.Plan{}, false, 0)
	if code := ready(); code != http.StatusOK {
		t.Errorf("fresh tick: expected 200, got %d", code)
	}
}

func TestMount(t *testing.T) {
	server := NewServer(NewMotionMetrics(), DefaultServerConfig())
	server.Mount("/api/state", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mounted"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Body.String() != "mounted" {
		t.Errorf("mounted handler not reached: %q", w.Body.String())
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(NewMotionMetrics(), DefaultServerConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	deadline := time.Now().Add(time.Second)
	for !server.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "OK\n" {
		t.Errorf("unexpected body %q", body)
	}
	if server.Status()["running"] != true {
		t.Error("status should report running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve returned %v", err)
	}
	if server.IsRunning() {
		t.Error("server should not be running after Shutdown")
	}
}
