package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

const metricsNamespace = "usis"

// MetricsService owns the Prometheus registry. Every method is safe on a nil
// receiver so collaborators can run without instrumentation in tests.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLookups  *prometheus.CounterVec
	cacheLatency  *prometheus.HistogramVec
	cacheHitRatio prometheus.Gauge

	dbQueryDuration *prometheus.HistogramVec

	phaseDuration   *prometheus.HistogramVec
	phaseSurvivors  *prometheus.HistogramVec
	phaseRejected   *prometheus.CounterVec
	routineOutcomes *prometheus.CounterVec
	ambiguousTimes  prometheus.Counter

	upstreamCalls *prometheus.HistogramVec

	// plain counters backing Snapshot
	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	routinesPlanned      uint64
	routinesFailed       uint64
	ambiguousCount       uint64
}

// NewMetricsService builds a private registry with the Go runtime collectors
// plus the HTTP, cache, mirror, planner and upstream series.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "route", "status"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Catalog cache lookups by result.",
	}, []string{"result"})
	m.cacheLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "operation_seconds",
		Help:      "Latency of cache reads and writes.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"op"})
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "hit_ratio",
		Help:      "Cache hits over all lookups since start.",
	})

	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "mirror",
		Name:      "query_duration_seconds",
		Help:      "Duration of catalog mirror queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})

	m.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "planner",
		Name:      "phase_duration_seconds",
		Help:      "Duration of each routine search phase.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"phase"})
	m.phaseSurvivors = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "planner",
		Name:      "phase_survivors",
		Help:      "Combinations left after each routine search phase.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"phase"})
	m.phaseRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "planner",
		Name:      "combinations_rejected_total",
		Help:      "Combinations dropped by each routine search phase.",
	}, []string{"phase"})
	m.routineOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "planner",
		Name:      "routines_total",
		Help:      "Routine planning requests by outcome.",
	}, []string{"outcome"})
	m.ambiguousTimes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "planner",
		Name:      "time_parse_ambiguous_total",
		Help:      "Meetings whose day or time could not be resolved.",
	})

	m.upstreamCalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "upstream",
		Name:      "call_duration_seconds",
		Help:      "Duration of upstream calls including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target", "outcome"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration, m.requestTotal,
		m.cacheLookups, m.cacheLatency, m.cacheHitRatio,
		m.dbQueryDuration,
		m.phaseDuration, m.phaseSurvivors, m.phaseRejected, m.routineOutcomes, m.ambiguousTimes,
		m.upstreamCalls,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts a lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObservePlannerPhase records one search phase: in combinations entered, out survived.
func (m *MetricsService) ObservePlannerPhase(phase string, in, out int, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	m.phaseSurvivors.WithLabelValues(phase).Observe(float64(out))
	if in > out {
		m.phaseRejected.WithLabelValues(phase).Add(float64(in - out))
	}
}

func (m *MetricsService) ObserveAmbiguousTimes(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ambiguousTimes.Add(float64(count))
	atomic.AddUint64(&m.ambiguousCount, uint64(count))
}

// RecordRoutineOutcome counts a planning request. "ok" is a success, any
// other label (a failure reason) is a failure.
func (m *MetricsService) RecordRoutineOutcome(outcome string) {
	if m == nil {
		return
	}
	m.routineOutcomes.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		atomic.AddUint64(&m.routinesPlanned, 1)
		return
	}
	atomic.AddUint64(&m.routinesFailed, 1)
}

func (m *MetricsService) ObserveUpstreamCall(target, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(target, outcome).Observe(duration.Seconds())
}

// Snapshot summarises the counters for /metrics/system.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	ratio, _ := m.hitRatio()
	return models.SystemMetrics{
		CacheHitRatio:            ratio,
		CacheHits:                atomic.LoadUint64(&m.cacheHitCount),
		CacheMisses:              atomic.LoadUint64(&m.cacheMissCount),
		RequestsTotal:            atomic.LoadUint64(&m.requestCount),
		AverageRequestDurationMs: averageMillis(&m.requestDurationTotal, &m.requestCount),
		DBQueryCount:             atomic.LoadUint64(&m.dbQueryCount),
		AverageDBQueryDurationMs: averageMillis(&m.dbQueryDurationTotal, &m.dbQueryCount),
		RoutinesPlanned:          atomic.LoadUint64(&m.routinesPlanned),
		RoutinesFailed:           atomic.LoadUint64(&m.routinesFailed),
		AmbiguousTimes:           atomic.LoadUint64(&m.ambiguousCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}

func averageMillis(totalNanos, count *uint64) float64 {
	n := atomic.LoadUint64(count)
	if n == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(totalNanos)) / float64(n) / float64(time.Millisecond)
}
