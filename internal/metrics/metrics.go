// Package metrics exposes stream health as Prometheus series.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/flvexporter/internal/domain"
	"github.com/hamed0406/flvexporter/internal/repo"
)

const namespace = "flv"

// Recorder receives per-check measurements from the scheduler.
type Recorder interface {
	CheckStarted(project string)
	CheckFinished(t domain.StreamTarget, healthy bool, took time.Duration)
}

// Exporter owns a dedicated registry so only flv_* series are exposed.
type Exporter struct {
	registry *prometheus.Registry
	store    repo.StatusStore

	checksTotal   *prometheus.CounterVec
	checksOK      *prometheus.CounterVec
	checksFailed  *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewExporter creates the counters and the duration histogram and registers
// them. Per-stream gauges are added with Register.
func NewExporter(store repo.StatusStore) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		store:    store,
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Total number of FLV checks performed",
			},
			[]string{"project"},
		),
		checksOK: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_successful_total",
				Help:      "Total number of successful FLV checks",
			},
			[]string{"project"},
		),
		checksFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_failed_total",
				Help:      "Total number of failed FLV checks",
			},
			[]string{"project"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Time taken to check an FLV stream, retries included",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"stream_name", "project"},
		),
		seen: make(map[string]struct{}),
	}
	e.registry.MustRegister(e.checksTotal, e.checksOK, e.checksFailed, e.checkDuration)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Register adds the status and response time gauges for t. It returns false
// when t.Name was already registered; nothing is added in that case.
func (e *Exporter) Register(t domain.StreamTarget) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[t.Name]; ok {
		return false
	}

	name := t.Name
	status := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_status",
			Help:      "FLV stream status (1=up, 0=down)",
			ConstLabels: prometheus.Labels{
				"stream_name": t.Name,
				"stream_url":  t.URL,
				"project":     t.Project,
				"description": t.Description,
			},
		},
		func() float64 {
			st, _ := e.store.Read(name)
			return st.Status
		},
	)
	latency := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_response_time_ms",
			Help:      "FLV stream response time in milliseconds",
			ConstLabels: prometheus.Labels{
				"stream_name": t.Name,
				"stream_url":  t.URL,
				"project":     t.Project,
			},
		},
		func() float64 {
			st, _ := e.store.Read(name)
			return st.ResponseTimeMS
		},
	)
	e.registry.MustRegister(status, latency)
	e.seen[name] = struct{}{}
	return true
}

func (e *Exporter) CheckStarted(project string) {
	e.checksTotal.WithLabelValues(project).Inc()
}

func (e *Exporter) CheckFinished(t domain.StreamTarget, healthy bool, took time.Duration) {
	if healthy {
		e.checksOK.WithLabelValues(t.Project).Inc()
	} else {
		e.checksFailed.WithLabelValues(t.Project).Inc()
	}
	e.checkDuration.WithLabelValues(t.Name, t.Project).Observe(took.Seconds())
}
