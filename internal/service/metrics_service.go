package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	recordStoreDuration *prometheus.HistogramVec
	scheduleRuns        *prometheus.CounterVec
	lessonsCreated      prometheus.Counter
	notifications       *prometheus.CounterVec
	dbQueryDuration     *prometheus.HistogramVec

	requestCount             uint64
	requestDurationTotal     uint64
	recordStoreCallCount     uint64
	recordStoreDurationTotal uint64
	scheduleRunCount         uint64
	scheduleRunFailures      uint64
	notificationFailureCount uint64
	lessonsCreatedCount      uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	recordStoreDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "record_store_request_duration_seconds",
		Help:    "Duration of record store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	scheduleRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_schedule_runs_total",
		Help: "Scheduling runs by final outcome",
	}, []string{"outcome"})

	lessonsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lessons_created_total",
		Help: "Lessons committed by scheduling runs",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Automation webhook deliveries",
	}, []string{"kind", "outcome"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, recordStoreDuration, scheduleRuns, lessonsCreated, notifications, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		recordStoreDuration: recordStoreDuration,
		scheduleRuns:        scheduleRuns,
		lessonsCreated:      lessonsCreated,
		notifications:       notifications,
		dbQueryDuration:     dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveRecordStoreCall implements recordstore.Observer. Status 0 means the call never got a response.
func (m *MetricsService) ObserveRecordStoreCall(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.recordStoreDuration.WithLabelValues(operation, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
	atomic.AddUint64(&m.recordStoreCallCount, 1)
	atomic.AddUint64(&m.recordStoreDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordScheduleRun counts a finished scheduling run and the lessons it left committed.
func (m *MetricsService) RecordScheduleRun(outcome models.SchedulingRunStatus, committed int) {
	if m == nil {
		return
	}
	m.scheduleRuns.WithLabelValues(string(outcome)).Inc()
	atomic.AddUint64(&m.scheduleRunCount, 1)
	if outcome != models.SchedulingRunSucceeded {
		atomic.AddUint64(&m.scheduleRunFailures, 1)
	}
	if committed > 0 {
		m.lessonsCreated.Add(float64(committed))
		atomic.AddUint64(&m.lessonsCreatedCount, uint64(committed))
	}
}

// RecordNotification counts a webhook delivery attempt.
func (m *MetricsService) RecordNotification(kind string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
		atomic.AddUint64(&m.notificationFailureCount, 1)
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	storeCalls := atomic.LoadUint64(&m.recordStoreCallCount)
	storeDuration := atomic.LoadUint64(&m.recordStoreDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgStoreMs float64
	if storeCalls > 0 {
		avgStoreMs = float64(storeDuration) / float64(storeCalls) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		RequestsTotal:                requests,
		AverageRequestDurationMs:     avgRequestMs,
		RecordStoreCalls:             storeCalls,
		AverageRecordStoreDurationMs: avgStoreMs,
		ScheduleRuns:                 atomic.LoadUint64(&m.scheduleRunCount),
		ScheduleRunFailures:          atomic.LoadUint64(&m.scheduleRunFailures),
		LessonsCreated:               atomic.LoadUint64(&m.lessonsCreatedCount),
		NotificationFailures:         atomic.LoadUint64(&m.notificationFailureCount),
		Goroutines:                   runtime.NumGoroutine(),
		GeneratedAt:                  time.Now().UTC(),
	}
}
