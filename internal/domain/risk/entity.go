package risk

import (
	"strings"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// Status is a risk's register state. Risks are never deleted.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusMonitoring Status = "MONITORING"
	StatusClosed     Status = "CLOSED"
	StatusArchived   Status = "ARCHIVED"
)

// Statuses lists every register state in display order.
var Statuses = []Status{StatusOpen, StatusMonitoring, StatusClosed, StatusArchived}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", errors.NewValidationError("status", "unknown risk status "+s)
}

// Risk is one entry of an organization's risk register.
//
// The inherent pair is what the register currently holds, including any
// applied intelligence adjustments. The baseline pair is the value last
// entered by a person, before intelligence; undo recomputes from it.
type Risk struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	RiskCode       string `json:"risk_code"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Category       string `json:"category"`
	Division       string `json:"division,omitempty"`
	Department     string `json:"department,omitempty"`
	Owner          string `json:"owner,omitempty"`
	Status         Status `json:"status"`

	LikelihoodInherent int `json:"likelihood_inherent"`
	ImpactInherent     int `json:"impact_inherent"`
	InherentScore      int `json:"score_inherent"`
	BaselineLikelihood int `json:"baseline_likelihood"`
	BaselineImpact     int `json:"baseline_impact"`

	ResidualLikelihood int        `json:"likelihood_residual_calc"`
	ResidualImpact     int        `json:"impact_residual_calc"`
	ResidualScore      int        `json:"residual_score_calc"`
	FormulaVersion     string     `json:"formula_version"`
	LastResidualCalc   *time.Time `json:"last_residual_calc,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRisk builds an OPEN risk whose baseline, inherent and residual values all
// equal the submitted pair. Callers recompute the residual once controls exist.
func NewRisk(orgID, code, title, category string, likelihood, impact, matrixSize int) (*Risk, error) {
	now := time.Now().UTC()
	r := &Risk{
		ID:             string(common.NewID()),
		OrganizationID: orgID,
		RiskCode:       strings.TrimSpace(code),
		Title:          strings.TrimSpace(title),
		Category:       category,
		Status:         StatusOpen,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.SetBaseline(likelihood, impact)
	r.ApplyResidual(Residual{Likelihood: likelihood, Impact: impact, Score: likelihood * impact}, now)
	if err := r.Validate(matrixSize); err != nil {
		return nil, err
	}
	return r, nil
}

// SetInherent replaces the current inherent pair and its score.
func (r *Risk) SetInherent(likelihood, impact int) {
	r.LikelihoodInherent = likelihood
	r.ImpactInherent = impact
	r.InherentScore = likelihood * impact
}

// SetBaseline records a person-entered pair as both baseline and inherent.
func (r *Risk) SetBaseline(likelihood, impact int) {
	r.BaselineLikelihood = likelihood
	r.BaselineImpact = impact
	r.SetInherent(likelihood, impact)
}

// ApplyResidual stores a calculator result and stamps the calculation time.
func (r *Risk) ApplyResidual(res Residual, at time.Time) {
	r.ResidualLikelihood = res.Likelihood
	r.ResidualImpact = res.Impact
	r.ResidualScore = res.Likelihood * res.Impact
	r.FormulaVersion = res.FormulaVersion
	ts := at.UTC()
	r.LastResidualCalc = &ts
}

// InherentLevel classifies the inherent score.
func (r *Risk) InherentLevel() Level { return LevelForScore(r.InherentScore) }

// ResidualLevel classifies the residual score.
func (r *Risk) ResidualLevel() Level { return LevelForScore(r.ResidualScore) }

// IsArchived reports whether the risk has left the active register.
func (r *Risk) IsArchived() bool { return r.Status == StatusArchived }

// TransitionTo moves the risk to status. ARCHIVED is terminal.
func (r *Risk) TransitionTo(status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if r.Status == StatusArchived && status != StatusArchived {
		return errors.New(errors.ErrCodeValidation, "archived risks cannot be reopened").
			WithDetail("risk_code=" + r.RiskCode)
	}
	r.Status = status
	return nil
}

// Validate checks field ranges and the score invariants.
func (r *Risk) Validate(matrixSize int) error {
	if r.OrganizationID == "" {
		return errors.NewValidationError("organization_id", "organization is required")
	}
	if r.RiskCode == "" {
		return errors.NewValidationError("risk_code", "risk code is required")
	}
	if r.Title == "" {
		return errors.NewValidationError("title", "title is required")
	}
	for field, v := range map[string]int{
		"likelihood_inherent": r.LikelihoodInherent,
		"impact_inherent":     r.ImpactInherent,
		"baseline_likelihood": r.BaselineLikelihood,
		"baseline_impact":     r.BaselineImpact,
	} {
		if v < 1 || v > matrixSize {
			return errors.NewValidationError(field, "value must be within the risk matrix").
				WithDetail(field + " out of range [1, matrix size]")
		}
	}
	if r.InherentScore != r.LikelihoodInherent*r.ImpactInherent {
		return errors.NewInternal("inherent score %d does not equal %d x %d",
			r.InherentScore, r.LikelihoodInherent, r.ImpactInherent)
	}
	if r.ResidualScore != r.ResidualLikelihood*r.ResidualImpact {
		return errors.NewInternal("residual score %d does not equal %d x %d",
			r.ResidualScore, r.ResidualLikelihood, r.ResidualImpact)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Control
// ─────────────────────────────────────────────────────────────────────────────

// ControlTarget names the risk dimension a control reduces.
type ControlTarget string

const (
	TargetLikelihood ControlTarget = "Likelihood"
	TargetImpact     ControlTarget = "Impact"
)

// MaxDIME is the top of the DIME ordinal scale.
const MaxDIME = 3

// Control mitigates one dimension of exactly one risk. Effectiveness is
// always derived from the DIME sub-scores.
type Control struct {
	ID             string        `json:"id"`
	RiskID         string        `json:"risk_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Target         ControlTarget `json:"target"`
	Design         int           `json:"design"`
	Implementation int           `json:"implementation"`
	Monitoring     int           `json:"monitoring"`
	Evaluation     int           `json:"evaluation"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
}

// Effectiveness is mean(D, I, M, E) / 3, in [0, 1].
func (c Control) Effectiveness() float64 {
	sum := c.Design + c.Implementation + c.Monitoring + c.Evaluation
	return float64(sum) / 4.0 / MaxDIME
}

// Active reports whether the control still counts toward the residual.
func (c Control) Active() bool { return c.DeletedAt == nil }

// Validate checks the target and DIME ranges.
func (c Control) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.NewValidationError("name", "control name is required")
	}
	if c.Target != TargetLikelihood && c.Target != TargetImpact {
		return errors.NewValidationError("target", "target must be Likelihood or Impact")
	}
	for field, v := range map[string]int{
		"design":         c.Design,
		"implementation": c.Implementation,
		"monitoring":     c.Monitoring,
		"evaluation":     c.Evaluation,
	} {
		if v < 0 || v > MaxDIME {
			return errors.NewValidationError(field, "DIME scores must be between 0 and 3")
		}
	}
	return nil
}

//Personal.AI order the ending
