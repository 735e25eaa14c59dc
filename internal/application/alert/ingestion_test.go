package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

func newEvent() *intelligence.ExternalEvent {
	return &intelligence.ExternalEvent{
		OrganizationID: org,
		Source:         "cbn-circulars",
		URL:            "https://example.org/circular/42",
		EventType:      "regulatory",
		Title:          "New capital adequacy rules",
		PublishedDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestScanEvent_CreatesAlertsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.risk(t, "R-1", 2, 2)
	f.risk(t, "R-2", 2, 2)
	f.risk(t, "R-3", 2, 2)
	f.classifier.results["R-1"] = &intelligence.ClassificationResult{ConfidenceScore: 85, SuggestedLikelihoodChange: 1, Reasoning: "direct exposure"}
	f.classifier.results["R-2"] = &intelligence.ClassificationResult{ConfidenceScore: 60, ImpactChange: 2}
	f.classifier.results["R-3"] = &intelligence.ClassificationResult{ConfidenceScore: 59, ImpactChange: 2}

	res, err := f.svc.ScanEvent(ctx, newEvent())
	require.NoError(t, err)
	assert.True(t, res.EventCreated)
	assert.Equal(t, 3, res.RisksScanned)
	assert.Equal(t, 2, res.AlertsCreated)
	assert.Equal(t, 1, res.BelowCutoff)

	page, err := f.svc.List(ctx, &ListRequest{OrganizationID: org, Statuses: []string{"Pending"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, a := range page.Items {
		assert.Equal(t, res.EventID, a.EventID)
		assert.NotEqual(t, "R-3", a.RiskCode)
		assert.Equal(t, int64(1), a.Version)
	}
	assert.Equal(t, []string{kafka.EventTypeAlertCreated, kafka.EventTypeAlertCreated}, f.publisher.types())
}

func TestScanEvent_RescanSkipsExistingPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.risk(t, "R-1", 2, 2)
	f.classifier.results["R-1"] = &intelligence.ClassificationResult{ConfidenceScore: 90}

	first, err := f.svc.ScanEvent(ctx, newEvent())
	require.NoError(t, err)
	require.Equal(t, 1, first.AlertsCreated)

	second, err := f.svc.ScanEvent(ctx, newEvent())
	require.NoError(t, err)
	assert.False(t, second.EventCreated)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, 0, second.AlertsCreated)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, f.classifier.calls)
}

func TestScanEvent_ClassifierFailureCreatesNoAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.risk(t, "R-1", 2, 2)
	f.risk(t, "R-2", 2, 2)
	f.classifier.results["R-1"] = &intelligence.ClassificationResult{ConfidenceScore: 90}
	f.classifier.failOn = "R-2"

	_, err := f.svc.ScanEvent(ctx, newEvent())
	require.Error(t, err)
	assert.True(t, errors.IsExternal(err))

	page, err := f.svc.List(ctx, &ListRequest{OrganizationID: org})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, f.publisher.types())
}

func TestScanEvent_SkipsClosedAndArchivedRisks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.risk(t, "R-1", 2, 2)
	closed := f.risk(t, "R-2", 2, 2)
	require.NoError(t, closed.TransitionTo(domainRisk.StatusClosed))
	require.NoError(t, f.store.Repos().Risks.Update(ctx, closed))

	res, err := f.svc.ScanEvent(ctx, newEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, res.RisksScanned)
}

func TestScanEvent_InvalidResult(t *testing.T) {
	f := newFixture(t)
	f.risk(t, "R-1", 2, 2)
	f.classifier.results["R-1"] = &intelligence.ClassificationResult{ConfidenceScore: 140}

	_, err := f.svc.ScanEvent(context.Background(), newEvent())
	assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierUnavailable))
}

func TestScanEvent_InvalidEvent(t *testing.T) {
	f := newFixture(t)
	ev := newEvent()
	ev.Title = " "
	_, err := f.svc.ScanEvent(context.Background(), ev)
	assert.True(t, errors.IsValidation(err))
}

func TestScanEvent_NoClassifier(t *testing.T) {
	svc, err := NewService(testutil.NewMemStore(), nil, nil, nil, nil, testutil.NewMockLogger(), ServiceConfig{})
	require.NoError(t, err)
	_, err = svc.ScanEvent(context.Background(), newEvent())
	assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierUnavailable))
}

func TestNewService_RejectsThresholdOutOfRange(t *testing.T) {
	_, err := NewService(testutil.NewMemStore(), nil, nil, nil, nil, testutil.NewMockLogger(), ServiceConfig{ConfidenceThreshold: 101})
	assert.True(t, errors.IsValidation(err))
}

//Personal.AI order the ending
