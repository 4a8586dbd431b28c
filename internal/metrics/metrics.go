// Package metrics exposes controller and gateway activity for Prometheus
// scraping. A Recorder owns its own registry so nothing leaks into the
// process-wide default one.
//
// Every Recorder method is safe to call on a nil *Recorder, which records
// nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/session"
)

// Path is where the metrics endpoint is served
const Path = "/metrics"

// Recorder collects starvectl metrics
type Recorder struct {
	registry *prometheus.Registry

	pollsTotal      *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	leases          prometheus.Gauge
	releasesTotal   *prometheus.CounterVec
	phase           prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Recorder with all collectors registered
func New() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starvectl_polls_total",
			Help: "Status polls by result",
		},
		[]string{"result"},
	)
	r.pollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "starvectl_poll_duration_seconds",
		Help:    "Status poll round-trip time",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	r.leases = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starvectl_leases",
		Help: "Leases held by the attack as last reported by the service",
	})
	r.releasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starvectl_releases_total",
			Help: "Release operations by kind (single, all) and result",
		},
		[]string{"kind", "result"},
	)
	r.phase = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starvectl_phase",
		Help: "Lifecycle phase (0 idle, 1 discovering, 2 attacking)",
	})
	r.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starvectl_gateway_requests_total",
			Help: "Requests to the lab service by operation and HTTP status (0 = no response)",
		},
		[]string{"op", "code"},
	)
	r.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starvectl_gateway_request_duration_seconds",
			Help:    "Lab service request time by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	collectors := []prometheus.Collector{
		r.pollsTotal,
		r.pollDuration,
		r.leases,
		r.releasesTotal,
		r.phase,
		r.requestsTotal,
		r.requestDuration,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return r, nil
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// PollObserved records one status poll
func (r *Recorder) PollObserved(ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.pollsTotal.WithLabelValues(result(ok)).Inc()
	r.pollDuration.Observe(elapsed.Seconds())
}

// LeasesObserved records the authoritative lease count
func (r *Recorder) LeasesObserved(n int) {
	if r == nil {
		return
	}
	r.leases.Set(float64(n))
}

// ReleaseObserved records one release operation
func (r *Recorder) ReleaseObserved(kind string, ok bool) {
	if r == nil {
		return
	}
	r.releasesTotal.WithLabelValues(kind, result(ok)).Inc()
}

// PhaseChanged records the lifecycle phase
func (r *Recorder) PhaseChanged(p session.Phase) {
	if r == nil {
		return
	}
	r.phase.Set(float64(p))
}

// ObserveRequest records one gateway request
func (r *Recorder) ObserveRequest(op string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve serves the metrics endpoint on addr until ctx is cancelled
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, r.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("Metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
