package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

var alertCols = []string{"id", "organization_id", "event_id", "risk_id", "risk_code", "confidence_score",
	"suggested_likelihood_change", "impact_change", "reasoning", "impact_assessment", "suggested_controls",
	"status", "reviewed_by", "reviewed_at", "applied_at", "version", "created_at", "updated_at"}

var eventCols = []string{"id", "organization_id", "source", "external_id", "event_type", "title", "summary",
	"url", "published_date", "created_at"}

func pageOf(page, size int) common.Pagination { return common.Pagination{Page: page, PageSize: size} }

func alertRow(rows *sqlmock.Rows, id, status string, applied *time.Time) *sqlmock.Rows {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	var appliedAt interface{}
	if applied != nil {
		appliedAt = *applied
	}
	return rows.AddRow(id, "org-1", "ev-1", "r-1", "OPS-001", 85, 1, 0, "reason", "", []byte(`["hedge"]`),
		status, "", nil, appliedAt, int64(1), now, now)
}

func TestAlertRepo_Create_DuplicateEventRisk(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	a := intelligence.NewAlert("org-1", "ev-1", "r-1", "OPS-001", &intelligence.ClassificationResult{ConfidenceScore: 80})
	mock.ExpectExec("INSERT INTO risk_intelligence_alerts").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "alerts_event_risk_key"})

	err := repo.Create(context.Background(), a)
	assert.True(t, errors.IsConflict(err))
}

func TestAlertRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	mock.ExpectQuery("FROM risk_intelligence_alerts WHERE organization_id = \\$1 AND id = \\$2").
		WithArgs("org-1", "a-1").
		WillReturnRows(alertRow(sqlmock.NewRows(alertCols), "a-1", "Pending", nil))

	a, err := repo.GetByID(context.Background(), "org-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, intelligence.AlertPending, a.Status)
	assert.Equal(t, []string{"hedge"}, a.SuggestedControls)
	assert.Nil(t, a.AppliedAt)
}

func TestAlertRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	mock.ExpectQuery("FROM risk_intelligence_alerts").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "org-1", "nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertNotFound))
}

func TestAlertRepo_List_Filters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM risk_intelligence_alerts WHERE organization_id = \\$1 AND status = ANY\\(\\$2\\) AND confidence_score >= \\$3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("ORDER BY created_at DESC, id LIMIT 20 OFFSET 0").
		WillReturnRows(alertRow(sqlmock.NewRows(alertCols), "a-1", "Accepted", nil))

	out, total, err := repo.List(context.Background(), "org-1", intelligence.AlertFilter{
		Statuses:      []intelligence.AlertStatus{intelligence.AlertAccepted},
		MinConfidence: 70,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, out, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepo_Update_StaleVersionIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	a := intelligence.NewAlert("org-1", "ev-1", "r-1", "OPS-001", &intelligence.ClassificationResult{ConfidenceScore: 80})
	a.ID = "a-1"
	mock.ExpectQuery("UPDATE risk_intelligence_alerts SET").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM risk_intelligence_alerts WHERE organization_id").
		WillReturnRows(alertRow(sqlmock.NewRows(alertCols), "a-1", "Accepted", nil))

	err := repo.Update(context.Background(), a)
	assert.True(t, errors.IsConflict(err))
}

func TestAlertRepo_ListApplied(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertRepo(db, logging.NewNopLogger())

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(alertCols)
	alertRow(rows, "a-1", "Applied", &t1)
	mock.ExpectQuery("status = 'Applied' ORDER BY applied_at, id").WithArgs("r-1").WillReturnRows(rows)

	out, err := repo.ListApplied(context.Background(), "r-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].AppliedAt)
	assert.Equal(t, t1, *out[0].AppliedAt)
}

func TestEventRepo_Save_Idempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db, logging.NewNopLogger())

	pub := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := &intelligence.ExternalEvent{OrganizationID: "org-1", Source: "cbn", ExternalID: "x-1", Title: "Rate hike", PublishedDate: pub}
	ev.Normalize()

	mock.ExpectExec("ON CONFLICT \\(organization_id, source, external_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	stored, created, err := repo.Save(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Same(t, ev, stored)

	dup := *ev
	dup.ID = "other"
	mock.ExpectExec("ON CONFLICT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM external_events WHERE organization_id = \\$1 AND source = \\$2 AND external_id = \\$3").
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(ev.ID, "org-1", "cbn", "x-1", "", "Rate hike", "", "", pub, pub))

	stored, created, err = repo.Save(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ev.ID, stored.ID)
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db, logging.NewNopLogger())

	mock.ExpectQuery("FROM external_events").WillReturnError(sql.ErrNoRows)
	_, err := repo.GetByID(context.Background(), "org-1", "ev-x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEventNotFound))
}

//Personal.AI order the ending
