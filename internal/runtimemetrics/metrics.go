// Package runtimemetrics exposes the runtime's Prometheus surface, grounded
// on the teacher's internal/metrics Collector: a handful of counters and
// gauges registered once at construction, updated from hot paths via plain
// methods, and served over /metrics by promhttp.
package runtimemetrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks the runtime's phase throughput, active worker count,
// and control-plane activity.
type Collector struct {
	phasesTotal      *prometheus.CounterVec
	stepsCompleted   prometheus.Counter
	activeWorkers    prometheus.Gauge
	pendingGetSet    prometheus.Counter
	pauseTotal       prometheus.Counter
	stopTotal        prometheus.Counter
	actorPanicsTotal prometheus.Counter
}

// NewCollector builds and registers a Collector against reg. Passing nil
// registers against prometheus.DefaultRegisterer, matching how the teacher's
// Collector used the package-level MustRegister.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		phasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runtime_phases_total",
			Help: "Total phase commands dispatched to workers, by phase.",
		}, []string{"phase"}),
		stepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runtime_steps_completed_total",
			Help: "Total simulation steps completed across all services.",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "runtime_active_workers",
			Help: "Worker actors spawned by the last Initialize.",
		}),
		pendingGetSet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runtime_pending_get_set_total",
			Help: "Total GetVar/SetVar requests relayed through a runtime service.",
		}),
		pauseTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runtime_pause_total",
			Help: "Total Pause() calls that completed successfully.",
		}),
		stopTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runtime_stop_total",
			Help: "Total Stop() calls that completed.",
		}),
		actorPanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runtime_actor_panics_total",
			Help: "Total actor goroutines that terminated via panic.",
		}),
	}

	reg.MustRegister(c.phasesTotal, c.stepsCompleted, c.activeWorkers,
		c.pendingGetSet, c.pauseTotal, c.stopTotal, c.actorPanicsTotal)

	return c
}

// RecordPhase increments the per-phase counter, keyed by the phase's
// human name (e.g. "spk", "pre_mgmt").
func (c *Collector) RecordPhase(phase string) {
	if c == nil {
		return
	}
	c.phasesTotal.WithLabelValues(phase).Inc()
}

// RecordStepCompleted increments the completed-step counter.
func (c *Collector) RecordStepCompleted() {
	if c == nil {
		return
	}
	c.stepsCompleted.Inc()
}

// SetActiveWorkers sets the current spawned-worker gauge.
func (c *Collector) SetActiveWorkers(n int) {
	if c == nil {
		return
	}
	c.activeWorkers.Set(float64(n))
}

// RecordGetSet increments the GetVar/SetVar relay counter.
func (c *Collector) RecordGetSet() {
	if c == nil {
		return
	}
	c.pendingGetSet.Inc()
}

// RecordPause increments the successful-pause counter.
func (c *Collector) RecordPause() {
	if c == nil {
		return
	}
	c.pauseTotal.Inc()
}

// RecordStop increments the stop counter.
func (c *Collector) RecordStop() {
	if c == nil {
		return
	}
	c.stopTotal.Inc()
}

// RecordActorPanic increments the actor-panic counter.
func (c *Collector) RecordActorPanic() {
	if c == nil {
		return
	}
	c.actorPanicsTotal.Inc()
}

// Server serves /metrics for a Collector's registry on its own
// http.Server, so callers can shut it down independently of the runtime.
type Server struct {
	httpServer *http.Server
}

// NewServer wraps addr in an http.Server exposing /metrics via promhttp.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// ListenAndServe blocks serving metrics until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the metrics server within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
