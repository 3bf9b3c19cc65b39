// Package metrics defines the Prometheus metrics of the matching service.
// All Record helpers are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Matching pass metrics
	MatchPassesTotal    *prometheus.CounterVec
	MatchPassDuration   *prometheus.HistogramVec
	MatchCandidates     prometheus.Histogram
	MatchesRecorded     *prometheus.CounterVec
	MatchDuplicates     *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	StoreErrorsTotal    *prometheus.CounterVec
	DispatchDropped     prometheus.Counter
	DispatchQueueLength prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec

	// Store size
	StoreRows *prometheus.GaugeVec

	// Backup metrics
	BackupTotal    *prometheus.CounterVec
	BackupDuration prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		MatchPassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_match_passes_total",
				Help: "Total number of matching passes by trigger and outcome",
			},
			[]string{"trigger", "status"}, // status: completed, skipped, invalid, failed
		),

		MatchPassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swap_match_pass_duration_seconds",
				Help:    "Matching pass duration in seconds by trigger",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"trigger"}, // trigger: intent, sweep, admin
		),

		MatchCandidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swap_match_candidates",
				Help:    "Number of candidates fetched per matching pass",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 35, 50},
			},
		),

		MatchesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_matches_recorded_total",
				Help: "Total number of match records written by rule",
			},
			[]string{"rule"},
		),

		MatchDuplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_match_duplicates_total",
				Help: "Matches skipped as duplicates by detection stage",
			},
			[]string{"stage"}, // stage: store, pass, constraint
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_notifications_total",
				Help: "Notifications by outcome",
			},
			[]string{"status"}, // status: sent, skipped, failed
		),

		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_store_errors_total",
				Help: "Store call failures during matching by operation",
			},
			[]string{"operation"},
		),

		DispatchDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swap_dispatch_dropped_total",
				Help: "Matching jobs dropped because the dispatch queue was full",
			},
		),

		DispatchQueueLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swap_dispatch_queue_length",
				Help: "Matching jobs waiting in the dispatch queue",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),

		RateLimiterWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swap_rate_limiter_wait_seconds",
				Help:    "Time spent waiting for a rate limiter token",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"limiter"},
		),

		StoreRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swap_store_rows",
				Help: "Rows per table in the local store",
			},
			[]string{"table"}, // table: intents, matches, profiles
		),

		BackupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_backup_total",
				Help: "Snapshot backup attempts by outcome",
			},
			[]string{"status"}, // status: success, error, not_leader
		),

		BackupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swap_backup_duration_seconds",
				Help:    "Snapshot backup duration in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
	}
}

// RecordMatchPass records a finished matching pass.
func (m *Metrics) RecordMatchPass(trigger, status string, duration float64) {
	if m == nil {
		return
	}
	m.MatchPassesTotal.WithLabelValues(trigger, status).Inc()
	m.MatchPassDuration.WithLabelValues(trigger).Observe(duration)
}

// RecordCandidates records the candidate pool size of one pass.
func (m *Metrics) RecordCandidates(n int) {
	if m == nil {
		return
	}
	m.MatchCandidates.Observe(float64(n))
}

// RecordMatch records one written match record.
func (m *Metrics) RecordMatch(rule string) {
	if m == nil {
		return
	}
	m.MatchesRecorded.WithLabelValues(rule).Inc()
}

// RecordDuplicate records a match skipped as already recorded.
func (m *Metrics) RecordDuplicate(stage string) {
	if m == nil {
		return
	}
	m.MatchDuplicates.WithLabelValues(stage).Inc()
}

// RecordNotification records one notification outcome.
func (m *Metrics) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// RecordStoreError records a failed store call.
func (m *Metrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordDispatchDrop records a job rejected by a full queue.
func (m *Metrics) RecordDispatchDrop() {
	if m == nil {
		return
	}
	m.DispatchDropped.Inc()
}

// SetQueueLength updates the dispatch queue gauge.
func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.DispatchQueueLength.Set(float64(n))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordRateLimiterWait records time spent waiting on a limiter.
func (m *Metrics) RecordRateLimiterWait(limiter string, duration float64) {
	if m == nil {
		return
	}
	m.RateLimiterWaitDuration.WithLabelValues(limiter).Observe(duration)
}

// SetStoreRows updates the row gauge of a table.
func (m *Metrics) SetStoreRows(table string, n int) {
	if m == nil {
		return
	}
	m.StoreRows.WithLabelValues(table).Set(float64(n))
}

// RecordBackup records a backup attempt.
func (m *Metrics) RecordBackup(status string, duration float64) {
	if m == nil {
		return
	}
	m.BackupTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.BackupDuration.Observe(duration)
	}
}
