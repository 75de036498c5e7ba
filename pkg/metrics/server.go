// HTTP server for the metrics endpoint
//
// Serves /metrics for Prometheus scraping plus the /health and /ready checks.
// Other handlers (the websocket stream) are mounted on the same router.
//
// Example usage:
//
//	m := metrics.NewMotionMetrics()
//	server := metrics.NewServer(m, metrics.DefaultServerConfig())
//	server.Mount("/ws", hub)
//	errCh := server.StartAsync()
//	defer server.Shutdown(context.Background())
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"motiongen/pkg/errors"
	"motiongen/pkg/log"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	// Address to listen on (e.g., ":9100" or "127.0.0.1:9100")
	Address string

	// Optional basic auth credentials for /metrics
	Username string
	Password string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// StaleAfter marks the server not ready when no tick was recorded
	// for this long. Zero disables the check.
	StaleAfter time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":9100",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server serves metrics and mounted handlers over HTTP
type Server struct {
	metrics *MotionMetrics
	cfg     ServerConfig
	router  *mux.Router
	server  *http.Server
	logger  *log.Logger

	mu        sync.RWMutex
	running   bool
	listener  net.Listener
	startTime time.Time
}

// NewServer creates a metrics server.
func NewServer(m *MotionMetrics, cfg ServerConfig) *Server {
	s := &Server{
		metrics: m,
		cfg:     cfg,
		router:  mux.NewRouter(),
		logger:  log.GetLogger("metrics"),
	}

	s.router.Handle("/metrics", s.withAuth(m.Handler())).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Mount registers h at path. Must be called before Start.
func (s *Server) Mount(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errors.TransportError("listen "+s.cfg.Address, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.running = true
	s.listener = ln
	s.startTime = time.Now()
	s.mu.Unlock()

	s.logger.Info("serving on %s", ln.Addr())
	err := s.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return errors.TransportError("serve", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine. The channel yields the
// serve error, if any, and is closed when the server stops.
func (s *Server) StartAsync() chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address once serving, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Address
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	ready := running
	if ready && s.cfg.StaleAfter > 0 {
		since := s.metrics.SinceLastTick()
		ready = since >= 0 && since <= s.cfg.StaleAfter
	}

	w.Header().Set("Content-Type", "text/plain")
	if ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready\n"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready\n"))
	}
}

// withAuth wraps h with basic auth when credentials are configured.
func (s *Server) withAuth(h http.Handler) http.Handler {
	if s.cfg.Username == "" && s.cfg.Password == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="motiongen"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// Status returns server status for diagnostics
func (s *Server) Status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]any{
		"address": s.cfg.Address,
		"running": s.running,
	}
	if s.running {
		status["uptime"] = time.Since(s.startTime).Seconds()
	}
	return status
}
