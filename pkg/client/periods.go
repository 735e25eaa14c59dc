package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Period is a calendar quarter. Paths and query strings use its label form,
// for example "2025-Q1".
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

func (p Period) String() string { return fmt.Sprintf("%d-Q%d", p.Year, p.Quarter) }

// Commit records one frozen quarter of the register.
type Commit struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Period         Period    `json:"period"`
	CommittedAt    time.Time `json:"committed_at"`
	CommittedBy    string    `json:"committed_by"`
	RisksCount     int       `json:"risks_count"`
	Notes          string    `json:"notes,omitempty"`
	FormulaVersion string    `json:"formula_version"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
}

type Snapshot struct {
	ID                 string    `json:"id"`
	CommitID           string    `json:"commit_id"`
	Period             Period    `json:"period"`
	RiskID             string    `json:"risk_id"`
	RiskCode           string    `json:"risk_code"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Status             string    `json:"status"`
	LikelihoodInherent int       `json:"likelihood_inherent"`
	ImpactInherent     int       `json:"impact_inherent"`
	InherentScore      int       `json:"score_inherent"`
	ResidualLikelihood int       `json:"residual_likelihood"`
	ResidualImpact     int       `json:"residual_impact"`
	ResidualScore      int       `json:"residual_score"`
	FormulaVersion     string    `json:"formula_version"`
	CreatedAt          time.Time `json:"created_at"`
}

type TrendPoint struct {
	Period           Period         `json:"period"`
	Label            string         `json:"label"`
	CommittedAt      time.Time      `json:"committed_at"`
	Total            int            `json:"total"`
	ByLevel          map[string]int `json:"by_level"`
	ByStatus         map[string]int `json:"by_status"`
	AvgInherentScore float64        `json:"avg_inherent_score"`
	AvgResidualScore float64        `json:"avg_residual_score"`
}

type Migration struct {
	RiskCode  string `json:"risk_code"`
	Title     string `json:"title"`
	FromLevel string `json:"from_level"`
	ToLevel   string `json:"to_level"`
	FromScore int    `json:"from_score"`
	ToScore   int    `json:"to_score"`
	Direction string `json:"direction"`
}

type MigrationReport struct {
	From        Period      `json:"from"`
	To          Period      `json:"to"`
	Migrations  []Migration `json:"migrations"`
	Escalated   []Migration `json:"escalated"`
	DeEscalated []Migration `json:"de_escalated"`
	Unchanged   int         `json:"unchanged"`
}

type FieldDelta struct {
	Field string      `json:"field"`
	From  interface{} `json:"from"`
	To    interface{} `json:"to"`
}

type RiskDelta struct {
	RiskCode string       `json:"risk_code"`
	Fields   []FieldDelta `json:"fields"`
}

type Comparison struct {
	From        Period          `json:"from"`
	To          Period          `json:"to"`
	NewRisks    []*Snapshot     `json:"new_risks"`
	ClosedRisks []*Snapshot     `json:"closed_risks"`
	Changed     []RiskDelta     `json:"changed"`
	Migrations  MigrationReport `json:"migrations"`
}

type HeatmapCell struct {
	Likelihood int      `json:"likelihood"`
	Impact     int      `json:"impact"`
	Count      int      `json:"count"`
	RiskCodes  []string `json:"risk_codes"`
	Level      string   `json:"level"`
	Opacity    float64  `json:"opacity"`
}

type Heatmap struct {
	MatrixSize int           `json:"matrix_size"`
	View       string        `json:"view"`
	Period     string        `json:"period,omitempty"`
	Cells      []HeatmapCell `json:"cells"`
	Total      int           `json:"total"`
	Dropped    int           `json:"dropped"`
}

// PeriodsClient covers /periods and /heatmap.
type PeriodsClient struct {
	client *Client
}

// Commit freezes the current register as period. A period can be committed
// once per organization.
func (p *PeriodsClient) Commit(ctx context.Context, period, notes string) (*Commit, error) {
	if period == "" {
		return nil, fmt.Errorf("%w: period is required", ErrInvalidConfig)
	}
	var out Commit
	body := map[string]string{"period": period, "notes": notes}
	if err := p.client.post(ctx, "/periods", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PeriodsClient) List(ctx context.Context) ([]*Commit, error) {
	var out struct {
		Items []*Commit `json:"items"`
	}
	if err := p.client.get(ctx, "/periods", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (p *PeriodsClient) Snapshots(ctx context.Context, period string) ([]*Snapshot, error) {
	var out struct {
		Items []*Snapshot `json:"items"`
	}
	if err := p.client.get(ctx, "/periods/"+url.PathEscape(period)+"/snapshots", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Trends returns one point per committed period, oldest first.
func (p *PeriodsClient) Trends(ctx context.Context) ([]TrendPoint, error) {
	var out struct {
		Items []TrendPoint `json:"items"`
	}
	if err := p.client.get(ctx, "/periods/trends", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (p *PeriodsClient) Migrations(ctx context.Context, from, to string) (*MigrationReport, error) {
	var out MigrationReport
	if err := p.client.get(ctx, withQuery("/periods/migrations", fromTo(from, to)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PeriodsClient) Compare(ctx context.Context, from, to string) (*Comparison, error) {
	var out Comparison
	if err := p.client.get(ctx, withQuery("/periods/compare", fromTo(from, to)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ArchiveURL returns a time-limited download link for the period's archived
// snapshot document.
func (p *PeriodsClient) ArchiveURL(ctx context.Context, period string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := p.client.get(ctx, "/periods/"+url.PathEscape(period)+"/archive", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Heatmap returns the live register grid. view is "inherent" or "residual";
// zero matrixSize uses the server default.
func (p *PeriodsClient) Heatmap(ctx context.Context, view string, matrixSize int) (*Heatmap, error) {
	return p.heatmap(ctx, "/heatmap", view, matrixSize)
}

func (p *PeriodsClient) HeatmapForPeriod(ctx context.Context, period, view string, matrixSize int) (*Heatmap, error) {
	return p.heatmap(ctx, "/heatmap/"+url.PathEscape(period), view, matrixSize)
}

func (p *PeriodsClient) heatmap(ctx context.Context, path, view string, matrixSize int) (*Heatmap, error) {
	v := url.Values{}
	if view != "" {
		v.Set("view", view)
	}
	if matrixSize > 0 {
		v.Set("matrix_size", strconv.Itoa(matrixSize))
	}
	var out Heatmap
	if err := p.client.get(ctx, withQuery(path, v), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func fromTo(from, to string) url.Values {
	return url.Values{"from": {from}, "to": {to}}
}

//Personal.AI order the ending
