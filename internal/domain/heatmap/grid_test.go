package heatmap

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
)

func TestBuildGrid(t *testing.T) {
	points := []Point{
		{RiskCode: "R-2", Likelihood: 4, Impact: 5},
		{RiskCode: "R-1", Likelihood: 3.6, Impact: 4.5},
		{RiskCode: "R-3", Likelihood: 1.2, Impact: 0.9},
		{RiskCode: "R-X", Likelihood: 6, Impact: 2},
		{RiskCode: "R-Y", Likelihood: 0.4, Impact: 2},
	}
	g, err := BuildGrid(points, 5, ViewResidual)
	require.NoError(t, err)

	assert.Len(t, g.Cells, 25)
	assert.Equal(t, 3, g.Total)
	assert.Equal(t, 2, g.Dropped)

	c := g.Cell(4, 5)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, []string{"R-1", "R-2"}, c.RiskCodes)
	assert.Equal(t, risk.LevelExtreme, c.Level)
	assert.Equal(t, 0.6, c.Opacity)

	assert.Equal(t, 1, g.Cell(1, 1).Count)
	assert.Equal(t, risk.LevelLow, g.Cell(1, 1).Level)
	assert.Equal(t, 0.0, g.Cell(2, 2).Opacity)
	assert.NotNil(t, g.Cell(2, 2).RiskCodes)
	assert.Nil(t, g.Cell(6, 1))
}

func TestBuildGrid_InvalidSize(t *testing.T) {
	_, err := BuildGrid(nil, 0, ViewInherent)
	assert.Error(t, err)
}

func TestOpacity(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 0.4, 2: 0.6, 3: 0.6, 4: 0.8, 5: 0.8, 6: 1, 40: 1}
	for n, want := range cases {
		assert.Equal(t, want, Opacity(n), "count %d", n)
	}
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewResidual, v)
	v, err = ParseView("Inherent")
	require.NoError(t, err)
	assert.Equal(t, ViewInherent, v)
	_, err = ParseView("target")
	assert.Error(t, err)
}

func TestPointsFromRisks(t *testing.T) {
	r := &risk.Risk{RiskCode: "R-1"}
	r.SetInherent(4, 5)
	r.ResidualLikelihood, r.ResidualImpact = 2, 5

	assert.Equal(t, []Point{{"R-1", 4, 5}}, PointsFromRisks([]*risk.Risk{r}, ViewInherent))
	assert.Equal(t, []Point{{"R-1", 2, 5}}, PointsFromRisks([]*risk.Risk{r}, ViewResidual))
}

func TestBuildGrid_Properties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("cell counts sum to in-range points", prop.ForAll(
		func(ls, is []float64) bool {
			n := len(ls)
			if len(is) < n {
				n = len(is)
			}
			points := make([]Point, n)
			for k := 0; k < n; k++ {
				points[k] = Point{RiskCode: "R", Likelihood: ls[k], Impact: is[k]}
			}
			g, err := BuildGrid(points, 5, ViewResidual)
			if err != nil {
				return false
			}
			sum := 0
			for _, c := range g.Cells {
				sum += c.Count
				if c.Count != len(c.RiskCodes) {
					return false
				}
			}
			return sum == g.Total && g.Total+g.Dropped == n
		},
		gen.SliceOf(gen.Float64Range(-1, 7)),
		gen.SliceOf(gen.Float64Range(-1, 7)),
	))

	properties.TestingRun(t)
}

//Personal.AI order the ending
