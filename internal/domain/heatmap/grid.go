// Package heatmap buckets risks into a likelihood × impact grid.
package heatmap

import (
	"math"
	"sort"
	"strings"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// View selects which score pair places a risk.
type View string

const (
	ViewInherent View = "inherent"
	ViewResidual View = "residual"
)

// ParseView defaults an empty string to residual.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewResidual:
		return ViewResidual, nil
	case ViewInherent:
		return ViewInherent, nil
	}
	return "", errors.NewValidationError("view", "view must be inherent or residual")
}

// Point is one risk's coordinates. Coordinates may be fractional when they
// come from averaged or externally supplied data.
type Point struct {
	RiskCode   string
	Likelihood float64
	Impact     float64
}

// Cell is one grid square.
type Cell struct {
	Likelihood int        `json:"likelihood"`
	Impact     int        `json:"impact"`
	Count      int        `json:"count"`
	RiskCodes  []string   `json:"risk_codes"`
	Level      risk.Level `json:"level"`
	Opacity    float64    `json:"opacity"`
}

// Grid is the full n × n heatmap, row-major by likelihood then impact.
type Grid struct {
	MatrixSize int    `json:"matrix_size"`
	View       View   `json:"view"`
	Period     string `json:"period,omitempty"`
	Cells      []Cell `json:"cells"`
	Total      int    `json:"total"`
	Dropped    int    `json:"dropped"`
}

// BuildGrid places every point in its rounded cell. Points that fall outside
// [1, matrixSize] after rounding are counted in Dropped.
func BuildGrid(points []Point, matrixSize int, view View) (*Grid, error) {
	if matrixSize < 1 {
		return nil, errors.NewValidation("matrix size must be positive, got %d", matrixSize)
	}
	g := &Grid{MatrixSize: matrixSize, View: view, Cells: make([]Cell, matrixSize*matrixSize)}
	for l := 1; l <= matrixSize; l++ {
		for i := 1; i <= matrixSize; i++ {
			g.Cells[g.index(l, i)] = Cell{
				Likelihood: l,
				Impact:     i,
				RiskCodes:  []string{},
				Level:      risk.LevelForScore(l * i),
			}
		}
	}

	for _, p := range points {
		l, i := int(math.Round(p.Likelihood)), int(math.Round(p.Impact))
		if l < 1 || l > matrixSize || i < 1 || i > matrixSize {
			g.Dropped++
			continue
		}
		c := &g.Cells[g.index(l, i)]
		c.Count++
		c.RiskCodes = append(c.RiskCodes, p.RiskCode)
		g.Total++
	}

	for k := range g.Cells {
		sort.Strings(g.Cells[k].RiskCodes)
		g.Cells[k].Opacity = Opacity(g.Cells[k].Count)
	}
	return g, nil
}

// Cell returns the cell at (likelihood, impact), or nil when out of range.
func (g *Grid) Cell(likelihood, impact int) *Cell {
	if likelihood < 1 || likelihood > g.MatrixSize || impact < 1 || impact > g.MatrixSize {
		return nil
	}
	return &g.Cells[g.index(likelihood, impact)]
}

func (g *Grid) index(l, i int) int { return (l-1)*g.MatrixSize + (i - 1) }

// Opacity is a display-only step function of a cell's count.
func Opacity(count int) float64 {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 0.4
	case count <= 3:
		return 0.6
	case count <= 5:
		return 0.8
	default:
		return 1.0
	}
}

// PointsFromRisks projects live risks onto the chosen view.
func PointsFromRisks(risks []*risk.Risk, view View) []Point {
	out := make([]Point, 0, len(risks))
	for _, r := range risks {
		p := Point{RiskCode: r.RiskCode, Likelihood: float64(r.LikelihoodInherent), Impact: float64(r.ImpactInherent)}
		if view == ViewResidual {
			p.Likelihood, p.Impact = float64(r.ResidualLikelihood), float64(r.ResidualImpact)
		}
		out = append(out, p)
	}
	return out
}

// PointsFromSnapshots projects frozen snapshots onto the chosen view.
func PointsFromSnapshots(snaps []*period.Snapshot, view View) []Point {
	out := make([]Point, 0, len(snaps))
	for _, s := range snaps {
		p := Point{RiskCode: s.RiskCode, Likelihood: float64(s.LikelihoodInherent), Impact: float64(s.ImpactInherent)}
		if view == ViewResidual {
			p.Likelihood, p.Impact = float64(s.ResidualLikelihood), float64(s.ResidualImpact)
		}
		out = append(out, p)
	}
	return out
}

//Personal.AI order the ending
