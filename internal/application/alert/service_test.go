package alert

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const org = "org-1"

// --- test doubles ---

type published struct {
	topic, key, eventType string
	payload               interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic, key, eventType, payload})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

type stubClassifier struct {
	mu      sync.Mutex
	results map[string]*intelligence.ClassificationResult
	failOn  string
	calls   int
}

func (c *stubClassifier) Classify(_ context.Context, r *domainRisk.Risk, _ *intelligence.ExternalEvent) (*intelligence.ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if r.RiskCode == c.failOn {
		return nil, errors.NewExternal(nil, "classifier timed out")
	}
	if res, ok := c.results[r.RiskCode]; ok {
		cp := *res
		return &cp, nil
	}
	return &intelligence.ClassificationResult{ConfidenceScore: 0}, nil
}

type fixture struct {
	store      *testutil.MemStore
	svc        Service
	publisher  *recordingPublisher
	classifier *stubClassifier
	events     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewMemStore()
	pub := &recordingPublisher{}
	cls := &stubClassifier{results: map[string]*intelligence.ClassificationResult{}}
	svc, err := NewService(st, cls, pub, nil, nil, testutil.NewMockLogger(), ServiceConfig{
		MatrixSize:          5,
		ConfidenceThreshold: 60,
	})
	require.NoError(t, err)
	return &fixture{store: st, svc: svc, publisher: pub, classifier: cls}
}

func (f *fixture) risk(t *testing.T, code string, l, i int) *domainRisk.Risk {
	t.Helper()
	r, err := domainRisk.NewRisk(org, code, "Risk "+code, "Operational", l, i, 5)
	require.NoError(t, err)
	r.FormulaVersion = domainRisk.FormulaMultiplicativeV1
	require.NoError(t, f.store.Repos().Risks.Create(context.Background(), r))
	return r
}

// alert stores an alert in the given status. Accepted alerts are reviewed by
// "analyst".
func (f *fixture) alert(t *testing.T, r *domainRisk.Risk, dl, di int, status intelligence.AlertStatus) *intelligence.Alert {
	t.Helper()
	f.events++
	a := intelligence.NewAlert(org, fmt.Sprintf("evt-%d", f.events), r.ID, r.RiskCode,
		&intelligence.ClassificationResult{ConfidenceScore: 80, SuggestedLikelihoodChange: dl, ImpactChange: di})
	if status == intelligence.AlertAccepted {
		require.NoError(t, a.Accept("analyst", time.Now()))
	}
	require.NoError(t, f.store.Repos().Alerts.Create(context.Background(), a))
	return a
}

func (f *fixture) current(t *testing.T, id string) *domainRisk.Risk {
	t.Helper()
	r, err := f.store.Repos().Risks.GetByID(context.Background(), org, id)
	require.NoError(t, err)
	return r
}

func req(alertID string) *TransitionRequest {
	return &TransitionRequest{OrganizationID: org, AlertID: alertID, Actor: "analyst"}
}

// --- review ---

func TestAccept_WritesLogWithUnchangedValues(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 3, 4)
	a := f.alert(t, r, 1, 0, intelligence.AlertPending)

	res, err := f.svc.Accept(context.Background(), &TransitionRequest{OrganizationID: org, AlertID: a.ID, Actor: "alice", Notes: "looks right"})
	require.NoError(t, err)
	assert.Equal(t, intelligence.AlertAccepted, res.Alert.Status)
	assert.Equal(t, "alice", res.Alert.ReviewedBy)
	assert.Nil(t, res.Risk)

	assert.Equal(t, treatment.ActionAccept, res.Entry.Action)
	assert.Equal(t, 3, res.Entry.PreviousLikelihood)
	assert.Equal(t, 3, res.Entry.NewLikelihood)
	assert.Equal(t, "looks right", res.Entry.Notes)

	assert.Equal(t, int64(1), f.current(t, r.ID).Version)
	assert.Equal(t, []string{kafka.EventTypeAlertAccepted}, f.publisher.types())
}

func TestReject_OnlyFromPending(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 3, 4)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	_, err := f.svc.Reject(context.Background(), req(a.ID))
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertInvalidTransition))
	assert.True(t, errors.IsValidation(err))
}

func TestTransition_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(context.Background(), &TransitionRequest{OrganizationID: org})
	assert.True(t, errors.IsValidation(err))

	_, err = f.svc.Apply(context.Background(), req("missing"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertNotFound))
}

// --- apply / undo ---

func TestApplyUndo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.risk(t, "R-1", 3, 3)
	a := f.alert(t, r, 1, 1, intelligence.AlertAccepted)

	applied, err := f.svc.Apply(ctx, &TransitionRequest{OrganizationID: org, AlertID: a.ID, Actor: "alice", Notes: "regulator fine"})
	require.NoError(t, err)
	assert.Equal(t, intelligence.AlertApplied, applied.Alert.Status)
	assert.True(t, applied.Alert.AppliedToRisk())
	assert.Equal(t, 4, applied.Risk.LikelihoodInherent)
	assert.Equal(t, 4, applied.Risk.ImpactInherent)
	assert.Equal(t, 16, applied.Risk.InherentScore)
	assert.Equal(t, 16, applied.Risk.ResidualScore)
	assert.Equal(t, 3, applied.Risk.BaselineLikelihood)
	assert.Equal(t, treatment.Values{Likelihood: 3, Impact: 3},
		treatment.Values{Likelihood: applied.Entry.PreviousLikelihood, Impact: applied.Entry.PreviousImpact})

	undone, err := f.svc.Undo(ctx, &TransitionRequest{OrganizationID: org, AlertID: a.ID, Actor: "bob", Notes: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, intelligence.AlertAccepted, undone.Alert.Status)
	assert.Nil(t, undone.Alert.AppliedAt)

	got := f.current(t, r.ID)
	assert.Equal(t, 3, got.LikelihoodInherent)
	assert.Equal(t, 3, got.ImpactInherent)
	assert.Equal(t, 9, got.InherentScore)
	assert.Equal(t, 9, got.ResidualScore)
	assert.Equal(t, int64(3), got.Version)

	log, err := f.store.Repos().Treatment.ListByRisk(ctx, org, "R-1", false)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, treatment.ActionUndo, log[0].Action)
	assert.Equal(t, "duplicate", log[0].Notes)
	assert.Equal(t, treatment.ActionApply, log[1].Action)

	chain, _ := f.store.Repos().Treatment.ListChain(ctx, org, "R-1")
	assert.True(t, treatment.VerifyChain(org, "R-1", chain).Valid)
}

func TestApply_Clamps(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 5, 1)
	a := f.alert(t, r, 3, -2, intelligence.AlertAccepted)

	res, err := f.svc.Apply(context.Background(), req(a.ID))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Risk.LikelihoodInherent)
	assert.Equal(t, 1, res.Risk.ImpactInherent)
	assert.Equal(t, 5, res.Risk.InherentScore)
}

func TestApply_Twice_IsRejectedWithoutSecondMutation(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 2)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	_, err := f.svc.Apply(context.Background(), req(a.ID))
	require.NoError(t, err)
	before := f.current(t, r.ID)

	_, err = f.svc.Apply(context.Background(), req(a.ID))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "already applied")

	after := f.current(t, r.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, 3, after.LikelihoodInherent)
}

func TestApply_RecomputesResidualThroughControls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.risk(t, "R-1", 3, 5)
	require.NoError(t, f.store.Repos().Risks.CreateControl(ctx, &domainRisk.Control{
		ID: "ctl-1", RiskID: r.ID, Name: "Dual approval", Target: domainRisk.TargetLikelihood,
		Design: 2, Implementation: 2, Monitoring: 2, Evaluation: 2, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	res, err := f.svc.Apply(ctx, req(a.ID))
	require.NoError(t, err)
	// inherent 4 x 5; one likelihood control at 2/3 effectiveness
	assert.Equal(t, 20, res.Risk.InherentScore)
	assert.Equal(t, 2, res.Risk.ResidualLikelihood)
	assert.Equal(t, 5, res.Risk.ResidualImpact)
	assert.Equal(t, 10, res.Risk.ResidualScore)
	assert.Equal(t, domainRisk.LevelHigh, res.Risk.ResidualLevel())
}

func TestUndo_ReappliesMaxOfRemainingAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 3)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)
	b := f.alert(t, r, 2, -1, intelligence.AlertAccepted)

	_, err := f.svc.Apply(ctx, req(a.ID))
	require.NoError(t, err)
	afterA := f.current(t, r.ID)

	_, err = f.svc.Apply(ctx, req(b.ID))
	require.NoError(t, err)
	assert.Equal(t, 5, f.current(t, r.ID).LikelihoodInherent)
	assert.Equal(t, 2, f.current(t, r.ID).ImpactInherent)

	_, err = f.svc.Undo(ctx, req(b.ID))
	require.NoError(t, err)
	afterUndo := f.current(t, r.ID)
	assert.Equal(t, afterA.LikelihoodInherent, afterUndo.LikelihoodInherent)
	assert.Equal(t, afterA.ImpactInherent, afterUndo.ImpactInherent)
	assert.Equal(t, afterA.ResidualScore, afterUndo.ResidualScore)

	_, err = f.svc.Apply(ctx, req(b.ID))
	require.NoError(t, err)
	_, err = f.svc.Undo(ctx, req(a.ID))
	require.NoError(t, err)
	got := f.current(t, r.ID)
	assert.Equal(t, 4, got.LikelihoodInherent, "baseline 2 plus b's +2")
	assert.Equal(t, 2, got.ImpactInherent, "baseline 3 plus b's -1")
}

func TestUndo_RequiresApplied(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 3)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	_, err := f.svc.Undo(context.Background(), req(a.ID))
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertInvalidTransition))
}

func TestApply_LogFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 2)
	a := f.alert(t, r, 2, 2, intelligence.AlertAccepted)

	boom := errors.NewInternal("disk full")
	f.store.FailOn("treatment.Append", boom)

	_, err := f.svc.Apply(context.Background(), req(a.ID))
	assert.ErrorIs(t, err, boom)

	got := f.current(t, r.ID)
	assert.Equal(t, 2, got.LikelihoodInherent)
	assert.Equal(t, int64(1), got.Version)
	stored, _ := f.store.Repos().Alerts.GetByID(context.Background(), org, a.ID)
	assert.Equal(t, intelligence.AlertAccepted, stored.Status)
	assert.Empty(t, f.publisher.types())
}

func TestApply_ArchivedRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 2)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)
	require.NoError(t, r.TransitionTo(domainRisk.StatusArchived))
	require.NoError(t, f.store.Repos().Risks.Update(ctx, r))

	_, err := f.svc.Apply(ctx, req(a.ID))
	assert.True(t, errors.IsValidation(err))
}

func TestUndo_ArchivedRiskIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 2)
	a := f.alert(t, r, 2, 0, intelligence.AlertAccepted)
	_, err := f.svc.Apply(ctx, req(a.ID))
	require.NoError(t, err)

	cur := f.current(t, r.ID)
	require.Equal(t, 4, cur.LikelihoodInherent)
	require.NoError(t, cur.TransitionTo(domainRisk.StatusArchived))
	require.NoError(t, f.store.Repos().Risks.Update(ctx, cur))

	_, err = f.svc.Undo(ctx, req(a.ID))
	assert.True(t, errors.IsValidation(err))

	after := f.current(t, r.ID)
	assert.Equal(t, 4, after.LikelihoodInherent)
	assert.Equal(t, domainRisk.StatusArchived, after.Status)
	got, err := f.svc.Get(ctx, org, a.ID)
	require.NoError(t, err)
	assert.Equal(t, intelligence.AlertApplied, got.Status)
}

func TestApply_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.NewExternal(nil, "broker down")
	r := f.risk(t, "R-1", 2, 2)
	a := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	_, err := f.svc.Apply(context.Background(), req(a.ID))
	assert.NoError(t, err)
}

// --- batches ---

func TestBatchApply_SecondOfThreeFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r1 := f.risk(t, "R-1", 2, 2)
	r2 := f.risk(t, "R-2", 2, 2)
	r3 := f.risk(t, "R-3", 2, 2)
	a1 := f.alert(t, r1, 1, 0, intelligence.AlertAccepted)
	a2 := f.alert(t, r2, 1, 0, intelligence.AlertPending)
	a3 := f.alert(t, r3, 0, 1, intelligence.AlertAccepted)

	res, err := f.svc.BatchApply(ctx, &BatchApplyRequest{
		OrganizationID: org,
		Actor:          "alice",
		AlertIDs:       []string{a1.ID, a2.ID, a3.ID},
		NotesByID:      map[string]string{a3.ID: "third"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, a2.ID, res.Errors[0].ItemID)
	assert.NotEmpty(t, res.Errors[0].Message)
	assert.False(t, res.TotalFailure())

	for _, id := range []string{a1.ID, a3.ID} {
		got, _ := f.store.Repos().Alerts.GetByID(ctx, org, id)
		assert.Equal(t, intelligence.AlertApplied, got.Status)
	}
	got, _ := f.store.Repos().Alerts.GetByID(ctx, org, a2.ID)
	assert.Equal(t, intelligence.AlertPending, got.Status)

	log, _ := f.store.Repos().Treatment.ListByRisk(ctx, org, "R-3", false)
	require.Len(t, log, 1)
	assert.Equal(t, "third", log[0].Notes)
}

func TestBatchApply_TotalFailure(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.BatchApply(context.Background(), &BatchApplyRequest{
		OrganizationID: org, Actor: "alice", AlertIDs: []string{"nope-1", "nope-2"},
	})
	require.NoError(t, err)
	assert.True(t, res.TotalFailure())
	assert.Equal(t, 2, res.ErrorCount)
}

func TestBatchApply_EmptyIsInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BatchApply(context.Background(), &BatchApplyRequest{OrganizationID: org, Actor: "alice"})
	assert.True(t, errors.IsValidation(err))
}

func TestBatchReject(t *testing.T) {
	f := newFixture(t)
	r := f.risk(t, "R-1", 2, 2)
	a1 := f.alert(t, r, 1, 0, intelligence.AlertPending)
	a2 := f.alert(t, r, 1, 0, intelligence.AlertAccepted)

	res, err := f.svc.BatchReject(context.Background(), &BatchRejectRequest{
		OrganizationID: org, Actor: "alice", AlertIDs: []string{a1.ID, a2.ID}, Notes: "noise",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, a2.ID, res.Errors[0].ItemID)
}

// --- reads ---

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	r1 := f.risk(t, "R-1", 2, 2)
	r2 := f.risk(t, "R-2", 2, 2)
	f.alert(t, r1, 1, 0, intelligence.AlertPending)
	f.alert(t, r2, 1, 0, intelligence.AlertAccepted)

	page, err := f.svc.List(context.Background(), &ListRequest{OrganizationID: org, Statuses: []string{"pending"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "R-1", page.Items[0].RiskCode)
	assert.Equal(t, 1, page.Pagination.Total)

	page, err = f.svc.List(context.Background(), &ListRequest{OrganizationID: org, RiskCode: "R-2"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.svc.List(context.Background(), &ListRequest{OrganizationID: org, Statuses: []string{"bogus"}})
	assert.True(t, errors.IsValidation(err))
}

//Personal.AI order the ending
