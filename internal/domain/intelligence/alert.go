// Package intelligence models classifier-generated alerts that correlate an
// external event to one risk, and the state machine that governs them.
package intelligence

import (
	"strings"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// AlertStatus is the closed set of alert states.
type AlertStatus string

const (
	AlertPending  AlertStatus = "Pending"
	AlertAccepted AlertStatus = "Accepted"
	AlertRejected AlertStatus = "Rejected"
	AlertApplied  AlertStatus = "Applied"
)

var alertStatuses = []AlertStatus{AlertPending, AlertAccepted, AlertRejected, AlertApplied}

// ParseAlertStatus accepts any casing of a known status.
func ParseAlertStatus(s string) (AlertStatus, error) {
	for _, st := range alertStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", errors.NewValidationError("status", "unknown alert status "+s)
}

// Alert suggests a likelihood/impact change for one risk based on one event.
type Alert struct {
	ID                        string      `json:"id"`
	OrganizationID            string      `json:"organization_id"`
	EventID                   string      `json:"event_id"`
	RiskID                    string      `json:"risk_id"`
	RiskCode                  string      `json:"risk_code"`
	ConfidenceScore           int         `json:"confidence_score"`
	SuggestedLikelihoodChange int         `json:"suggested_likelihood_change"`
	ImpactChange              int         `json:"impact_change"`
	Reasoning                 string      `json:"reasoning,omitempty"`
	ImpactAssessment          string      `json:"impact_assessment,omitempty"`
	SuggestedControls         []string    `json:"suggested_controls"`
	Status                    AlertStatus `json:"status"`
	ReviewedBy                string      `json:"reviewed_by,omitempty"`
	ReviewedAt                *time.Time  `json:"reviewed_at,omitempty"`
	AppliedAt                 *time.Time  `json:"applied_at,omitempty"`
	Version                   int64       `json:"version"`
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at"`
}

// NewAlert creates a Pending alert from a classification result.
func NewAlert(orgID, eventID, riskID, riskCode string, res *ClassificationResult) *Alert {
	now := time.Now().UTC()
	controls := res.SuggestedControls
	if controls == nil {
		controls = []string{}
	}
	return &Alert{
		ID:                        string(common.NewID()),
		OrganizationID:            orgID,
		EventID:                   eventID,
		RiskID:                    riskID,
		RiskCode:                  riskCode,
		ConfidenceScore:           res.ConfidenceScore,
		SuggestedLikelihoodChange: res.SuggestedLikelihoodChange,
		ImpactChange:              res.ImpactChange,
		Reasoning:                 res.Reasoning,
		ImpactAssessment:          res.ImpactAssessment,
		SuggestedControls:         controls,
		Status:                    AlertPending,
		Version:                   1,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// AppliedToRisk is derived from the status.
func (a *Alert) AppliedToRisk() bool { return a.Status == AlertApplied }

// HasDelta reports whether applying the alert changes anything.
func (a *Alert) HasDelta() bool {
	return a.SuggestedLikelihoodChange != 0 || a.ImpactChange != 0
}

func invalidTransition(a *Alert, op string) *errors.AppError {
	msg := "alert cannot be " + op + " from status " + string(a.Status)
	if op == "applied" && a.Status == AlertApplied {
		msg = "alert is already applied"
	}
	return errors.New(errors.ErrCodeAlertInvalidTransition, msg).WithDetail("alert_id=" + a.ID)
}

// Accept moves Pending to Accepted.
func (a *Alert) Accept(actor string, at time.Time) error {
	if a.Status != AlertPending {
		return invalidTransition(a, "accepted")
	}
	a.Status = AlertAccepted
	a.review(actor, at)
	return nil
}

// Reject moves Pending to Rejected.
func (a *Alert) Reject(actor string, at time.Time) error {
	if a.Status != AlertPending {
		return invalidTransition(a, "rejected")
	}
	a.Status = AlertRejected
	a.review(actor, at)
	return nil
}

// MarkApplied moves Accepted to Applied.
func (a *Alert) MarkApplied(at time.Time) error {
	if a.Status != AlertAccepted {
		return invalidTransition(a, "applied")
	}
	ts := at.UTC()
	a.Status = AlertApplied
	a.AppliedAt = &ts
	return nil
}

// MarkUndone returns an Applied alert to Accepted.
func (a *Alert) MarkUndone() error {
	if a.Status != AlertApplied {
		return invalidTransition(a, "undone")
	}
	a.Status = AlertAccepted
	a.AppliedAt = nil
	return nil
}

func (a *Alert) review(actor string, at time.Time) {
	ts := at.UTC()
	a.ReviewedAt = &ts
	a.ReviewedBy = actor
}

//Personal.AI order the ending
