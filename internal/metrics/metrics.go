package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for emailchamp
type Metrics struct {
	// Campaign store
	CampaignsStored  prometheus.Gauge
	StoreWritesTotal *prometheus.CounterVec

	// Content generation
	GenerationsTotal          *prometheus.CounterVec
	GenerationDurationSeconds *prometheus.HistogramVec
	QuotaExceededTotal        *prometheus.CounterVec

	// Block editor
	EditorSessionsActive prometheus.Gauge
	AutosaveWritesTotal  *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CampaignsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emailchamp_campaigns_stored",
				Help: "Number of campaigns in the store after the last write",
			},
		),
		StoreWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_store_writes_total",
				Help: "Total number of campaign store writes",
			},
			[]string{"op", "result"},
		),

		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_generations_total",
				Help: "Total number of LLM generation calls",
			},
			[]string{"kind", "result"},
		),
		GenerationDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emailchamp_generation_duration_seconds",
				Help:    "LLM generation latency in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"kind"},
		),
		QuotaExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_quota_exceeded_total",
				Help: "Total number of generation requests rejected by the quota",
			},
			[]string{"window"},
		),

		EditorSessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emailchamp_editor_sessions_active",
				Help: "Number of open block editor sessions",
			},
		),
		AutosaveWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_autosave_writes_total",
				Help: "Total number of editor draft writes",
			},
			[]string{"trigger", "result"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emailchamp_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailchamp_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emailchamp_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emailchamp_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "emailchamp_storage_used_bytes",
				Help: "BoltDB file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.CampaignsStored,
		m.StoreWritesTotal,
		m.GenerationsTotal,
		m.GenerationDurationSeconds,
		m.QuotaExceededTotal,
		m.EditorSessionsActive,
		m.AutosaveWritesTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStoreWrite records a campaign store write and the resulting size
func ObserveStoreWrite(op string, size int, err error) {
	m := Global()
	if m == nil {
		return
	}
	m.StoreWritesTotal.WithLabelValues(op, result(err)).Inc()
	if err == nil {
		m.CampaignsStored.Set(float64(size))
	}
}

// ObserveGeneration records one LLM generation call
func ObserveGeneration(kind string, d time.Duration, err error) {
	m := Global()
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(kind, result(err)).Inc()
	m.GenerationDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// IncQuotaExceeded increments the quota rejection counter
func IncQuotaExceeded(window string) {
	m := Global()
	if m != nil {
		m.QuotaExceededTotal.WithLabelValues(window).Inc()
	}
}

// IncAutosaveWrites records a draft write; trigger is "timer" or "explicit"
func IncAutosaveWrites(trigger string, err error) {
	m := Global()
	if m != nil {
		m.AutosaveWritesTotal.WithLabelValues(trigger, result(err)).Inc()
	}
}

// EditorSessionOpened increments the active editor session gauge
func EditorSessionOpened() {
	m := Global()
	if m != nil {
		m.EditorSessionsActive.Inc()
	}
}

// EditorSessionClosed decrements the active editor session gauge
func EditorSessionClosed() {
	m := Global()
	if m != nil {
		m.EditorSessionsActive.Dec()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
