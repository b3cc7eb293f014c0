package observability

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

// Metrics owns a private registry so tests can build as many as they like.
// Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	jobRuns    *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
	jobQueue   *prometheus.GaugeVec

	generation *prometheus.CounterVec
	cacheOps   *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	current     atomic.Pointer[Metrics]
)

// Init creates the process-wide Metrics on first call and returns it.
func Init() *Metrics {
	metricsOnce.Do(func() { current.Store(NewMetrics()) })
	return current.Load()
}

// Current returns the process-wide Metrics, or nil before Init.
func Current() *Metrics { return current.Load() }

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textbook_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textbook_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textbook_api_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textbook_job_runs_total",
			Help: "Finished job executions by type and resulting status.",
		}, []string{"job_type", "status"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textbook_job_duration_seconds",
			Help:    "Job execution time.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job_type"}),
		jobQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "textbook_job_queue",
			Help: "job_run rows by status, sampled periodically.",
		}, []string{"status"}),
		generation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textbook_activity_generation_total",
			Help: "Generated question sets by category and source (model or fallback).",
		}, []string{"category", "source"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textbook_cache_operations_total",
			Help: "Page cache reads by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobRuns, m.jobLatency, m.jobQueue,
		m.generation, m.cacheOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(jobType, status).Inc()
	m.jobLatency.WithLabelValues(jobType).Observe(dur.Seconds())
}

func (m *Metrics) IncGeneration(category string, fallback bool) {
	if m == nil {
		return
	}
	source := "model"
	if fallback {
		source = "fallback"
	}
	m.generation.WithLabelValues(category, source).Inc()
}

// IncCache records a page cache read: hit, miss or error.
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(result).Inc()
}

// StartJobQueueCollector samples job_run counts per status until ctx ends.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			if err := m.SampleJobQueue(ctx, db); err != nil && ctx.Err() == nil && log != nil {
				log.Warn("job queue sample failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (m *Metrics) SampleJobQueue(ctx context.Context, db *gorm.DB) error {
	if m == nil {
		return nil
	}
	var rows []struct {
		Status string
		N      int64
	}
	if err := db.WithContext(ctx).
		Model(&types.JobRun{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusDead} {
		m.jobQueue.WithLabelValues(s).Set(0)
	}
	for _, r := range rows {
		m.jobQueue.WithLabelValues(r.Status).Set(float64(r.N))
	}
	return nil
}
