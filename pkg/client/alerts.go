package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Alert is a classifier suggestion linking an external event to a risk.
type Alert struct {
	ID                        string     `json:"id"`
	OrganizationID            string     `json:"organization_id"`
	EventID                   string     `json:"event_id"`
	RiskID                    string     `json:"risk_id"`
	RiskCode                  string     `json:"risk_code"`
	ConfidenceScore           int        `json:"confidence_score"`
	SuggestedLikelihoodChange int        `json:"suggested_likelihood_change"`
	ImpactChange              int        `json:"impact_change"`
	Reasoning                 string     `json:"reasoning,omitempty"`
	ImpactAssessment          string     `json:"impact_assessment,omitempty"`
	SuggestedControls         []string   `json:"suggested_controls"`
	Status                    string     `json:"status"`
	ReviewedBy                string     `json:"reviewed_by,omitempty"`
	ReviewedAt                *time.Time `json:"reviewed_at,omitempty"`
	AppliedAt                 *time.Time `json:"applied_at,omitempty"`
	Version                   int64      `json:"version"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// TransitionResult carries the alert after a lifecycle step, plus the risk
// and treatment entry when the step moved the risk.
type TransitionResult struct {
	Alert          *Alert          `json:"alert"`
	Risk           *Risk           `json:"risk,omitempty"`
	TreatmentEntry *TreatmentEntry `json:"treatment_entry,omitempty"`
}

type AlertPage struct {
	Items      []*Alert   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// AlertQuery filters List.
type AlertQuery struct {
	Statuses      []string
	RiskCode      string
	MinConfidence int
	Page          int
	PageSize      int
}

func (q AlertQuery) values() url.Values {
	v := url.Values{}
	if len(q.Statuses) > 0 {
		v.Set("status", strings.Join(q.Statuses, ","))
	}
	if q.RiskCode != "" {
		v.Set("risk_code", q.RiskCode)
	}
	if q.MinConfidence > 0 {
		v.Set("min_confidence", strconv.Itoa(q.MinConfidence))
	}
	setPage(v, q.Page, q.PageSize)
	return v
}

// ExternalEvent is a news, regulatory or market item submitted for scanning.
type ExternalEvent struct {
	Source        string    `json:"source"`
	ExternalID    string    `json:"external_id"`
	EventType     string    `json:"event_type"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	URL           string    `json:"url,omitempty"`
	PublishedDate time.Time `json:"published_date"`
}

type ScanResult struct {
	EventID       string   `json:"event_id"`
	EventCreated  bool     `json:"event_created"`
	RisksScanned  int      `json:"risks_scanned"`
	AlertsCreated int      `json:"alerts_created"`
	Skipped       int      `json:"skipped_duplicates"`
	BelowCutoff   int      `json:"below_threshold"`
	Alerts        []*Alert `json:"alerts"`
}

// AlertsClient covers /alerts and /events.
type AlertsClient struct {
	client *Client
}

func (a *AlertsClient) List(ctx context.Context, q AlertQuery) (*AlertPage, error) {
	var out AlertPage
	if err := a.client.get(ctx, withQuery("/alerts", q.values()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AlertsClient) Get(ctx context.Context, alertID string) (*Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert id is required", ErrInvalidConfig)
	}
	var out Alert
	if err := a.client.get(ctx, "/alerts/"+url.PathEscape(alertID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AlertsClient) Accept(ctx context.Context, alertID, notes string) (*TransitionResult, error) {
	return a.transition(ctx, alertID, "accept", notes)
}

func (a *AlertsClient) Reject(ctx context.Context, alertID, notes string) (*TransitionResult, error) {
	return a.transition(ctx, alertID, "reject", notes)
}

// Apply moves the linked risk by the alert's suggested change and writes a
// treatment log entry.
func (a *AlertsClient) Apply(ctx context.Context, alertID, notes string) (*TransitionResult, error) {
	return a.transition(ctx, alertID, "apply", notes)
}

// Undo reverses an applied alert. The risk falls back to the strongest
// change among the alerts still applied to it.
func (a *AlertsClient) Undo(ctx context.Context, alertID, notes string) (*TransitionResult, error) {
	return a.transition(ctx, alertID, "undo", notes)
}

func (a *AlertsClient) transition(ctx context.Context, alertID, step, notes string) (*TransitionResult, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert id is required", ErrInvalidConfig)
	}
	var body interface{}
	if notes != "" {
		body = map[string]string{"notes": notes}
	}
	var out TransitionResult
	if err := a.client.post(ctx, "/alerts/"+url.PathEscape(alertID)+"/"+step, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchApply applies each alert independently. notes may be nil or keyed by
// alert id.
func (a *AlertsClient) BatchApply(ctx context.Context, alertIDs []string, notes map[string]string) (*BatchResult, error) {
	body := map[string]interface{}{"alert_ids": alertIDs}
	if len(notes) > 0 {
		body["notes"] = notes
	}
	var out BatchResult
	err := a.client.post(ctx, "/alerts/batch/apply", body, &out)
	return &out, err
}

func (a *AlertsClient) BatchReject(ctx context.Context, alertIDs []string, notes string) (*BatchResult, error) {
	body := map[string]interface{}{"alert_ids": alertIDs, "notes": notes}
	var out BatchResult
	err := a.client.post(ctx, "/alerts/batch/reject", body, &out)
	return &out, err
}

// ScanEvent submits one external event for classification against the
// register.
func (a *AlertsClient) ScanEvent(ctx context.Context, ev *ExternalEvent) (*ScanResult, error) {
	var out ScanResult
	if err := a.client.post(ctx, "/events", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
