package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppMetrics_Recorders(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.RecordHTTPRequest("POST", "/api/v1/alerts/{id}/apply", 200, 10*time.Millisecond)
	m.RecordAlertTransition("apply", nil)
	m.RecordAlertTransition("apply", errors.New("conflict"))
	m.RecordBatch("batch_apply", 2, 1)
	m.RecordRecalc("control_update", 4, time.Millisecond)
	m.RecordCacheAccess("heatmap", true)
	m.RecordCacheAccess("heatmap", false)
	m.RecordError("period", "PRD_003")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",route="/api/v1/alerts/{id}/apply",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_alert_transitions_total{action="apply",result="success"} 1`)
	assert.Contains(t, out, `test_unit_alert_transitions_total{action="apply",result="failure"} 1`)
	assert.Contains(t, out, `test_unit_batch_items_total{operation="batch_apply",result="failure"} 1`)
	assert.Contains(t, out, `test_unit_batch_items_total{operation="batch_apply",result="success"} 2`)
	assert.Contains(t, out, `test_unit_residual_recalculations_total{trigger="control_update"} 4`)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="heatmap"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="heatmap"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{code="PRD_003",component="period"} 1`)
}

func TestAppMetrics_RecordCommit(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.RecordCommit("org-1", 12, time.Second, nil)
	m.RecordCommit("org-1", 0, 0, errors.New("duplicate"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_period_commits_total{result="success"} 1`)
	assert.Contains(t, out, `test_unit_period_commits_total{result="failure"} 1`)
	assert.Contains(t, out, `test_unit_period_snapshot_risks{organization="org-1"} 12`)
	assert.Contains(t, out, "test_unit_period_commit_duration_seconds_count 1")
}

func TestNopAppMetrics(t *testing.T) {
	m := NewNopAppMetrics()
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 500, time.Second)
		m.RecordCommit("o", 1, time.Second, nil)
		m.RecordBatch("x", 1, 1)
		m.HeatmapBuildsTotal.WithLabelValues("residual", "cache").Inc()
		m.ClassifierDuration.WithLabelValues("ok").Observe(1)
	})
}

//Personal.AI order the ending
