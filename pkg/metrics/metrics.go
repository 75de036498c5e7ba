// Motion generator metrics
//
// Collectors live on their own prometheus.Registry so several generators
// (or tests) never collide on the default registerer.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motiongen/pkg/motion"
	"motiongen/pkg/sample"
)

// Recorder receives one observation per control tick.
type Recorder interface {
	// RecordTick is called after Update. replanned is true when the tick
	// started a new plan, elapsed is how long Update took.
	RecordTick(s sample.Sample, plan motion.Plan, replanned bool, elapsed time.Duration)
}

// PlanBuckets are the plan duration histogram buckets in seconds.
var PlanBuckets = []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3}

// MotionMetrics holds the generator collectors.
type MotionMetrics struct {
	Updates      prometheus.Counter
	Replans      *prometheus.CounterVec
	Position     prometheus.Gauge
	Velocity     prometheus.Gauge
	Acceleration prometheus.Gauge
	Target       prometheus.Gauge
	Finished     prometheus.Gauge
	MaxVelocity  prometheus.Gauge
	MaxAccel     prometheus.Gauge
	PlanDuration prometheus.Histogram
	StreamConns  prometheus.Gauge

	registry *prometheus.Registry

	mu       sync.RWMutex
	last     sample.Sample
	hasLast  bool
	lastTick time.Time
}

// NewMotionMetrics creates and registers all collectors. Go runtime
// collectors are registered alongside.
func NewMotionMetrics() *MotionMetrics {
	m := &MotionMetrics{
		registry: prometheus.NewRegistry(),
	}

	m.Updates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motiongen_updates_total",
		Help: "Total generator updates",
	})
	m.Replans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motiongen_replans_total",
		Help: "Total replans by profile shape",
	}, []string{"shape"})
	m.Position = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_position",
		Help: "Last commanded position",
	})
	m.Velocity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_velocity",
		Help: "Last commanded velocity",
	})
	m.Acceleration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_acceleration",
		Help: "Last commanded acceleration",
	})
	m.Target = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_target",
		Help: "Active target position",
	})
	m.Finished = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_finished",
		Help: "1 when the active plan has completed",
	})
	m.MaxVelocity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_max_velocity",
		Help: "Velocity limit of the active plan",
	})
	m.MaxAccel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_max_acceleration",
		Help: "Acceleration limit of the active plan",
	})
	m.PlanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "motiongen_plan_duration_seconds",
		Help:    "Time spent in updates that replanned",
		Buckets: PlanBuckets,
	})
	m.StreamConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motiongen_stream_clients",
		Help: "Connected websocket stream clients",
	})

	m.registry.MustRegister(
		m.Updates, m.Replans,
		m.Position, m.Velocity, m.Acceleration, m.Target, m.Finished,
		m.MaxVelocity, m.MaxAccel,
		m.PlanDuration, m.StreamConns,
		collectors.NewGoCollector(),
	)

	// Both shapes are exported from the start so rate() has a baseline
	m.Replans.WithLabelValues(motion.ShapeTrapezoid.String())
	m.Replans.WithLabelValues(motion.ShapeTriangle.String())

	return m
}

// RecordTick implements Recorder.
func (m *MotionMetrics) RecordTick(s sample.Sample, plan motion.Plan, replanned bool, elapsed time.Duration) {
	m.Updates.Inc()
	if replanned {
		m.Replans.WithLabelValues(plan.Shape.String()).Inc()
		m.PlanDuration.Observe(elapsed.Seconds())
	}

	m.Position.Set(s.Position)
	m.Velocity.Set(s.Velocity)
	m.Acceleration.Set(s.Acceleration)
	m.Target.Set(s.Target)
	if s.Finished {
		m.Finished.Set(1)
	} else {
		m.Finished.Set(0)
	}
	m.MaxVelocity.Set(plan.MaxVelocity)
	m.MaxAccel.Set(plan.MaxAcceleration)

	m.mu.Lock()
	m.last = s
	m.hasLast = true
	m.lastTick = time.Now()
	m.mu.Unlock()
}

// Last returns the most recent sample, if any.
func (m *MotionMetrics) Last() (sample.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.hasLast
}

// SinceLastTick returns the time since the last recorded tick, or -1 when
// nothing has been recorded.
func (m *MotionMetrics) SinceLastTick() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasLast {
		return -1
	}
	return time.Since(m.lastTick)
}

// Registry returns the registry holding the collectors.
func (m *MotionMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MotionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Multi fans a tick out to several recorders.
type Multi []Recorder

// RecordTick implements Recorder.
func (mr Multi) RecordTick(s sample.Sample, plan motion.Plan, replanned bool, elapsed time.Duration) {
	for _, r := range mr {
		r.RecordTick(s, plan, replanned, elapsed)
	}
}
