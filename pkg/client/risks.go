package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Risk is one register entry as served by the API.
type Risk struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	RiskCode           string     `json:"risk_code"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Category           string     `json:"category"`
	Division           string     `json:"division,omitempty"`
	Department         string     `json:"department,omitempty"`
	Owner              string     `json:"owner,omitempty"`
	Status             string     `json:"status"`
	LikelihoodInherent int        `json:"likelihood_inherent"`
	ImpactInherent     int        `json:"impact_inherent"`
	InherentScore      int        `json:"score_inherent"`
	BaselineLikelihood int        `json:"baseline_likelihood"`
	BaselineImpact     int        `json:"baseline_impact"`
	ResidualLikelihood int        `json:"likelihood_residual_calc"`
	ResidualImpact     int        `json:"impact_residual_calc"`
	ResidualScore      int        `json:"residual_score_calc"`
	FormulaVersion     string     `json:"formula_version"`
	LastResidualCalc   *time.Time `json:"last_residual_calc,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Control is a mitigating control rated on the four DIME dimensions.
type Control struct {
	ID             string    `json:"id,omitempty"`
	RiskID         string    `json:"risk_id,omitempty"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Target         string    `json:"target"`
	Design         int       `json:"design"`
	Implementation int       `json:"implementation"`
	Monitoring     int       `json:"monitoring"`
	Evaluation     int       `json:"evaluation"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// ControlResult pairs a control with the risk whose residual it moved.
type ControlResult struct {
	Control *Control `json:"control,omitempty"`
	Risk    *Risk    `json:"risk"`
}

type CreateRiskRequest struct {
	RiskCode    string `json:"risk_code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Division    string `json:"division,omitempty"`
	Department  string `json:"department,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Likelihood  int    `json:"likelihood"`
	Impact      int    `json:"impact"`
}

// RiskQuery filters List. Zero values are omitted from the query string.
type RiskQuery struct {
	Statuses        []string
	Category        string
	Owner           string
	IncludeArchived bool
	Page            int
	PageSize        int
}

func (q RiskQuery) values() url.Values {
	v := url.Values{}
	if len(q.Statuses) > 0 {
		v.Set("status", strings.Join(q.Statuses, ","))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Owner != "" {
		v.Set("owner", q.Owner)
	}
	if q.IncludeArchived {
		v.Set("include_archived", "true")
	}
	setPage(v, q.Page, q.PageSize)
	return v
}

// Pagination mirrors the server's page metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type RiskPage struct {
	Items      []*Risk    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// BatchFailure names one item a batch could not process.
type BatchFailure struct {
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// BatchResult is returned by every batch endpoint.
type BatchResult struct {
	SuccessCount int            `json:"successCount"`
	ErrorCount   int            `json:"errorCount"`
	Errors       []BatchFailure `json:"errors"`
}

// RisksClient covers /risks.
type RisksClient struct {
	client *Client
}

func (r *RisksClient) List(ctx context.Context, q RiskQuery) (*RiskPage, error) {
	var out RiskPage
	if err := r.client.get(ctx, withQuery("/risks", q.values()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RisksClient) Get(ctx context.Context, riskID string) (*Risk, error) {
	if riskID == "" {
		return nil, fmt.Errorf("%w: risk id is required", ErrInvalidConfig)
	}
	var out Risk
	if err := r.client.get(ctx, "/risks/"+url.PathEscape(riskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RisksClient) GetByCode(ctx context.Context, code string) (*Risk, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: risk code is required", ErrInvalidConfig)
	}
	var out Risk
	if err := r.client.get(ctx, "/risks/by-code/"+url.PathEscape(code), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RisksClient) Create(ctx context.Context, req *CreateRiskRequest) (*Risk, error) {
	var out Risk
	if err := r.client.post(ctx, "/risks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeStatus moves a risk to OPEN, MONITORING, CLOSED or ARCHIVED.
func (r *RisksClient) ChangeStatus(ctx context.Context, riskID, status string) (*Risk, error) {
	var out Risk
	body := map[string]string{"status": status}
	if err := r.client.put(ctx, "/risks/"+url.PathEscape(riskID)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RisksClient) ListControls(ctx context.Context, riskID string) ([]Control, error) {
	var out struct {
		Items []Control `json:"items"`
	}
	if err := r.client.get(ctx, "/risks/"+url.PathEscape(riskID)+"/controls", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (r *RisksClient) AddControl(ctx context.Context, riskID string, c *Control) (*ControlResult, error) {
	var out ControlResult
	if err := r.client.post(ctx, "/risks/"+url.PathEscape(riskID)+"/controls", controlBody(c), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RisksClient) RemoveControl(ctx context.Context, riskID, controlID string) (*ControlResult, error) {
	var out ControlResult
	path := "/risks/" + url.PathEscape(riskID) + "/controls/" + url.PathEscape(controlID)
	if err := r.client.delete(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recalculate re-derives every residual with the server's formula. When
// every risk fails the result is returned together with the APIError.
func (r *RisksClient) Recalculate(ctx context.Context) (*BatchResult, error) {
	var out BatchResult
	err := r.client.post(ctx, "/risks/recalculate", nil, &out)
	return &out, err
}

// controlBody sends only the fields the API accepts on write.
func controlBody(c *Control) map[string]interface{} {
	return map[string]interface{}{
		"name":           c.Name,
		"description":    c.Description,
		"target":         c.Target,
		"design":         c.Design,
		"implementation": c.Implementation,
		"monitoring":     c.Monitoring,
		"evaluation":     c.Evaluation,
	}
}

func setPage(v url.Values, page, size int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		v.Set("page_size", strconv.Itoa(size))
	}
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

//Personal.AI order the ending
