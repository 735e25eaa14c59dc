package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the engine records.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	ResidualRecalcTotal    CounterVec
	ResidualRecalcDuration HistogramVec

	AlertTransitionsTotal CounterVec
	BatchItemsTotal       CounterVec
	TreatmentEntriesTotal CounterVec

	PeriodCommitsTotal   CounterVec
	PeriodCommitDuration HistogramVec
	SnapshotRisks        GaugeVec

	HeatmapBuildsTotal CounterVec

	EventsIngestedTotal CounterVec
	ClassifierDuration  HistogramVec

	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	ErrorsTotal      CounterVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDBDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultCommitDurationBuckets = []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120}
)

func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route"),

		ResidualRecalcTotal:    c.RegisterCounter("residual_recalculations_total", "Residual recalculations by trigger", "trigger"),
		ResidualRecalcDuration: c.RegisterHistogram("residual_recalculation_duration_seconds", "Residual recalculation duration", DefaultDBDurationBuckets, "trigger"),

		AlertTransitionsTotal: c.RegisterCounter("alert_transitions_total", "Alert lifecycle transitions", "action", "result"),
		BatchItemsTotal:       c.RegisterCounter("batch_items_total", "Items processed by batch operations", "operation", "result"),
		TreatmentEntriesTotal: c.RegisterCounter("treatment_entries_total", "Treatment log entries appended", "action"),

		PeriodCommitsTotal:   c.RegisterCounter("period_commits_total", "Period commit attempts", "result"),
		PeriodCommitDuration: c.RegisterHistogram("period_commit_duration_seconds", "Period commit duration", DefaultCommitDurationBuckets),
		SnapshotRisks:        c.RegisterGauge("period_snapshot_risks", "Risks frozen by the latest commit", "organization"),

		HeatmapBuildsTotal: c.RegisterCounter("heatmap_builds_total", "Heatmap grid builds", "view", "source"),

		EventsIngestedTotal: c.RegisterCounter("events_ingested_total", "External events processed by the scanner", "result"),
		ClassifierDuration:  c.RegisterHistogram("classifier_request_duration_seconds", "Classifier call duration", DefaultHTTPDurationBuckets, "status"),

		DBQueryDuration:  c.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation"),
		CacheHitsTotal:   c.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		ErrorsTotal:      c.RegisterCounter("errors_total", "Errors by component and code", "component", "code"),
	}
}

// NewNopAppMetrics returns metrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	c, h, g := noopCounterVec{}, noopHistogramVec{}, noopGaugeVec{}
	return &AppMetrics{
		HTTPRequestsTotal: c, HTTPRequestDuration: h,
		ResidualRecalcTotal: c, ResidualRecalcDuration: h,
		AlertTransitionsTotal: c, BatchItemsTotal: c, TreatmentEntriesTotal: c,
		PeriodCommitsTotal: c, PeriodCommitDuration: h, SnapshotRisks: g,
		HeatmapBuildsTotal:  c,
		EventsIngestedTotal: c, ClassifierDuration: h,
		DBQueryDuration: h, CacheHitsTotal: c, CacheMissesTotal: c, ErrorsTotal: c,
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *AppMetrics) RecordRecalc(trigger string, count int, d time.Duration) {
	m.ResidualRecalcTotal.WithLabelValues(trigger).Add(float64(count))
	m.ResidualRecalcDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *AppMetrics) RecordAlertTransition(action string, err error) {
	m.AlertTransitionsTotal.WithLabelValues(action, result(err)).Inc()
}

func (m *AppMetrics) RecordBatch(operation string, succeeded, failed int) {
	m.BatchItemsTotal.WithLabelValues(operation, "success").Add(float64(succeeded))
	m.BatchItemsTotal.WithLabelValues(operation, "failure").Add(float64(failed))
}

func (m *AppMetrics) RecordCommit(orgID string, risks int, d time.Duration, err error) {
	m.PeriodCommitsTotal.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	m.PeriodCommitDuration.WithLabelValues().Observe(d.Seconds())
	m.SnapshotRisks.WithLabelValues(orgID).Set(float64(risks))
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
