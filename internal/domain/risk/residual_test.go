package risk

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

func dime(target ControlTarget, d, i, m, e int) Control {
	return Control{Name: "ctl", Target: target, Design: d, Implementation: i, Monitoring: m, Evaluation: e}
}

func newTestRisk(t *testing.T, l, i int) *Risk {
	t.Helper()
	r, err := NewRisk("org-1", "R-001", "Supplier failure", "Operational", l, i, 5)
	require.NoError(t, err)
	return r
}

func TestCalculator_WorkedExample(t *testing.T) {
	calc, err := NewCalculator(FormulaMultiplicativeV1, 5)
	require.NoError(t, err)

	r := newTestRisk(t, 4, 5)
	res := calc.Compute(r, []Control{dime(TargetLikelihood, 2, 2, 2, 2)})

	assert.Equal(t, 2, res.Likelihood)
	assert.Equal(t, 5, res.Impact)
	assert.Equal(t, 10, res.Score)
	assert.Equal(t, LevelHigh, res.Level())
	assert.Equal(t, FormulaMultiplicativeV1, res.FormulaVersion)
}

func TestCalculator_Compute(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		l, i     int
		controls []Control
		wantL    int
		wantI    int
	}{
		{"no controls", FormulaMultiplicativeV1, 3, 4, nil, 3, 4},
		{"exact product does not round up", FormulaMultiplicativeV1, 3, 3,
			[]Control{dime(TargetImpact, 1, 1, 1, 1)}, 3, 2},
		{"fully effective clamps to one", FormulaMultiplicativeV1, 5, 5,
			[]Control{dime(TargetLikelihood, 3, 3, 3, 3), dime(TargetImpact, 3, 3, 3, 3)}, 1, 1},
		{"zero effectiveness leaves value", FormulaMultiplicativeV1, 4, 4,
			[]Control{dime(TargetLikelihood, 0, 0, 0, 0)}, 4, 4},
		{"controls compound", FormulaMultiplicativeV1, 5, 5,
			[]Control{dime(TargetLikelihood, 2, 2, 2, 2), dime(TargetLikelihood, 2, 2, 2, 2)}, 1, 5},
		{"strongest credits one control", FormulaStrongestV1, 5, 5,
			[]Control{dime(TargetLikelihood, 1, 1, 1, 1), dime(TargetLikelihood, 2, 2, 2, 2)}, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := NewCalculator(tt.formula, 5)
			require.NoError(t, err)
			res := calc.Compute(newTestRisk(t, tt.l, tt.i), tt.controls)
			assert.Equal(t, tt.wantL, res.Likelihood)
			assert.Equal(t, tt.wantI, res.Impact)
			assert.Equal(t, tt.wantL*tt.wantI, res.Score)
		})
	}
}

func TestCalculator_IgnoresDeletedControls(t *testing.T) {
	calc, err := NewCalculator(FormulaMultiplicativeV1, 5)
	require.NoError(t, err)

	deleted := dime(TargetLikelihood, 3, 3, 3, 3)
	now := deleted.CreatedAt
	deleted.DeletedAt = &now

	res := calc.Compute(newTestRisk(t, 4, 4), []Control{deleted})
	assert.Equal(t, 4, res.Likelihood)
}

func TestNewCalculator_Errors(t *testing.T) {
	_, err := NewCalculator("nope-v0", 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFormulaUnknown))

	_, err = NewCalculator(FormulaMultiplicativeV1, 0)
	assert.True(t, errors.IsValidation(err))
}

func TestRegisterFormula_RejectsDuplicate(t *testing.T) {
	err := RegisterFormula(multiplicative{})
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, FormulaVersions(), FormulaStrongestV1)
}

func TestCalculator_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	calc, _ := NewCalculator(FormulaMultiplicativeV1, 5)
	score := gen.IntRange(1, 5)
	sub := gen.IntRange(0, 3)

	properties.Property("residual never exceeds inherent and stays in range", prop.ForAll(
		func(l, i, d, im, m, e int) bool {
			r := &Risk{}
			r.SetInherent(l, i)
			res := calc.Compute(r, []Control{
				dime(TargetLikelihood, d, im, m, e),
				dime(TargetImpact, e, m, im, d),
			})
			return res.Likelihood >= 1 && res.Likelihood <= l &&
				res.Impact >= 1 && res.Impact <= i &&
				res.Score == res.Likelihood*res.Impact
		},
		score, score, sub, sub, sub, sub,
	))

	properties.Property("computation is deterministic", prop.ForAll(
		func(l, i, d int) bool {
			r := &Risk{}
			r.SetInherent(l, i)
			ctl := []Control{dime(TargetLikelihood, d, d, d, d)}
			return calc.Compute(r, ctl) == calc.Compute(r, ctl)
		},
		score, score, sub,
	))

	properties.Property("more effective control never raises the residual", prop.ForAll(
		func(l, a, b int) bool {
			if a > b {
				a, b = b, a
			}
			r := &Risk{}
			r.SetInherent(l, 3)
			weak := calc.Compute(r, []Control{dime(TargetLikelihood, a, a, a, a)})
			strong := calc.Compute(r, []Control{dime(TargetLikelihood, b, b, b, b)})
			return strong.Likelihood <= weak.Likelihood
		},
		score, sub, sub,
	))

	properties.TestingRun(t)
}

//Personal.AI order the ending
