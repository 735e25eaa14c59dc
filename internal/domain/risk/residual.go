package risk

import (
	"math"
	"sort"
	"sync"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// Residual is the calculator output for one risk.
type Residual struct {
	Likelihood     int    `json:"likelihood"`
	Impact         int    `json:"impact"`
	Score          int    `json:"score"`
	FormulaVersion string `json:"formula_version"`
}

// Level classifies the residual score.
func (r Residual) Level() Level { return LevelForScore(r.Score) }

// Formula combines the effectiveness of every control on one dimension into
// the fraction of inherent risk that remains. Versions are immutable once
// released: committed snapshots record the version that produced them.
type Formula interface {
	Version() string
	Remaining(effectiveness []float64) float64
}

const (
	FormulaMultiplicativeV1 = "dime-multiplicative-v1"
	FormulaStrongestV1      = "dime-strongest-v1"
)

// multiplicative applies controls in sequence: remaining *= (1 - e).
type multiplicative struct{}

func (multiplicative) Version() string { return FormulaMultiplicativeV1 }

func (multiplicative) Remaining(effs []float64) float64 {
	remaining := 1.0
	for _, e := range effs {
		remaining *= 1 - clampUnit(e)
	}
	return remaining
}

// strongest only credits the single most effective control.
type strongest struct{}

func (strongest) Version() string { return FormulaStrongestV1 }

func (strongest) Remaining(effs []float64) float64 {
	best := 0.0
	for _, e := range effs {
		if e = clampUnit(e); e > best {
			best = e
		}
	}
	return 1 - best
}

var (
	formulasMu sync.RWMutex
	formulas   = map[string]Formula{
		FormulaMultiplicativeV1: multiplicative{},
		FormulaStrongestV1:      strongest{},
	}
)

// RegisterFormula adds a formula version. Re-registering a version fails.
func RegisterFormula(f Formula) error {
	formulasMu.Lock()
	defer formulasMu.Unlock()
	if _, exists := formulas[f.Version()]; exists {
		return errors.NewConflict("residual formula %s already registered", f.Version())
	}
	formulas[f.Version()] = f
	return nil
}

// LookupFormula resolves a version string.
func LookupFormula(version string) (Formula, error) {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	f, ok := formulas[version]
	if !ok {
		return nil, errors.New(errors.ErrCodeFormulaUnknown, "unknown residual formula").WithDetail("version=" + version)
	}
	return f, nil
}

// FormulaVersions lists the registered versions, sorted.
func FormulaVersions() []string {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	out := make([]string, 0, len(formulas))
	for v := range formulas {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Calculator derives residual values with one formula and matrix size.
type Calculator struct {
	formula    Formula
	matrixSize int
}

// NewCalculator resolves the formula version and checks the matrix size.
func NewCalculator(version string, matrixSize int) (*Calculator, error) {
	f, err := LookupFormula(version)
	if err != nil {
		return nil, err
	}
	if matrixSize < 1 {
		return nil, errors.NewValidation("matrix size must be positive, got %d", matrixSize)
	}
	return &Calculator{formula: f, matrixSize: matrixSize}, nil
}

// MatrixSize returns the upper bound of both dimensions.
func (c *Calculator) MatrixSize() int { return c.matrixSize }

// FormulaVersion returns the version stamped on results.
func (c *Calculator) FormulaVersion() string { return c.formula.Version() }

// Compute is a pure function of the risk's inherent pair and its active
// controls. Without controls the residual equals the inherent pair.
func (c *Calculator) Compute(r *Risk, controls []Control) Residual {
	var lik, imp []float64
	for _, ctl := range controls {
		if !ctl.Active() {
			continue
		}
		switch ctl.Target {
		case TargetLikelihood:
			lik = append(lik, ctl.Effectiveness())
		case TargetImpact:
			imp = append(imp, ctl.Effectiveness())
		}
	}

	l := c.reduce(r.LikelihoodInherent, lik)
	i := c.reduce(r.ImpactInherent, imp)
	return Residual{Likelihood: l, Impact: i, Score: l * i, FormulaVersion: c.formula.Version()}
}

// reduce computes ceil(inherent × remaining) clamped to [1, matrixSize]. The
// epsilon keeps exact products such as 3 × (1 - 1/3) from rounding up to 3.
func (c *Calculator) reduce(inherent int, effs []float64) int {
	if len(effs) == 0 {
		return ClampScore(inherent, c.matrixSize)
	}
	reduced := math.Ceil(float64(inherent)*c.formula.Remaining(effs) - 1e-9)
	return ClampScore(int(reduced), c.matrixSize)
}

// ClampScore bounds a likelihood or impact value to [1, matrixSize].
func ClampScore(v, matrixSize int) int {
	if v < 1 {
		return 1
	}
	if v > matrixSize {
		return matrixSize
	}
	return v
}

func clampUnit(e float64) float64 {
	if e < 0 {
		return 0
	}
	if e > 1 {
		return 1
	}
	return e
}

//Personal.AI order the ending
