package period

import (
	"sort"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
)

// TrendPoint aggregates one committed period.
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

// BuildTrends produces one point per commit ordered by period. Levels come
// from the residual score.
func BuildTrends(commits []*Commit, snapshots []*Snapshot) []TrendPoint {
	byCommit := make(map[string][]*Snapshot, len(commits))
	for _, s := range snapshots {
		byCommit[s.CommitID] = append(byCommit[s.CommitID], s)
	}

	sorted := append([]*Commit(nil), commits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period.Before(sorted[j].Period) })

	points := make([]TrendPoint, 0, len(sorted))
	for _, c := range sorted {
		pt := TrendPoint{
			Period:      c.Period,
			Label:       c.Period.String(),
			CommittedAt: c.CommittedAt,
			ByLevel:     make(map[string]int, len(risk.Levels)),
			ByStatus:    make(map[string]int, len(risk.Statuses)),
		}
		for _, lv := range risk.Levels {
			pt.ByLevel[string(lv)] = 0
		}
		for _, st := range risk.Statuses {
			pt.ByStatus[string(st)] = 0
		}
		var inh, res int
		for _, s := range byCommit[c.ID] {
			pt.Total++
			pt.ByLevel[string(s.ResidualLevel())]++
			pt.ByStatus[string(s.Status)]++
			inh += s.InherentScore
			res += s.ResidualScore
		}
		if pt.Total > 0 {
			pt.AvgInherentScore = float64(inh) / float64(pt.Total)
			pt.AvgResidualScore = float64(res) / float64(pt.Total)
		}
		points = append(points, pt)
	}
	return points
}

// Direction tags a level change.
type Direction string

const (
	Escalated   Direction = "escalated"
	DeEscalated Direction = "de-escalated"
	// Shifted is a level change within the low band or the elevated band.
	Shifted Direction = "shifted"
)

// Migration is one risk whose residual level changed between two periods.
type Migration struct {
	RiskCode  string     `json:"risk_code"`
	Title     string     `json:"title"`
	FromLevel risk.Level `json:"from_level"`
	ToLevel   risk.Level `json:"to_level"`
	FromScore int        `json:"from_score"`
	ToScore   int        `json:"to_score"`
	Direction Direction  `json:"direction"`
}

// MigrationReport groups the level changes between two periods.
type MigrationReport struct {
	From        Period      `json:"from"`
	To          Period      `json:"to"`
	Migrations  []Migration `json:"migrations"`
	Escalated   []Migration `json:"escalated"`
	DeEscalated []Migration `json:"de_escalated"`
	Unchanged   int         `json:"unchanged"`
}

// AnalyzeMigrations joins both snapshot sets by risk code and emits only the
// risks whose residual level changed. Escalated and DeEscalated are disjoint.
func AnalyzeMigrations(from, to Period, a, b []*Snapshot) MigrationReport {
	rep := MigrationReport{
		From:        from,
		To:          to,
		Migrations:  []Migration{},
		Escalated:   []Migration{},
		DeEscalated: []Migration{},
	}
	inA := indexByCode(a)
	for _, sb := range sortedByCode(b) {
		sa, ok := inA[sb.RiskCode]
		if !ok {
			continue
		}
		fromLv, toLv := sa.ResidualLevel(), sb.ResidualLevel()
		if fromLv == toLv {
			rep.Unchanged++
			continue
		}
		m := Migration{
			RiskCode:  sb.RiskCode,
			Title:     sb.Title,
			FromLevel: fromLv,
			ToLevel:   toLv,
			FromScore: sa.ResidualScore,
			ToScore:   sb.ResidualScore,
			Direction: classify(fromLv, toLv),
		}
		rep.Migrations = append(rep.Migrations, m)
		switch m.Direction {
		case Escalated:
			rep.Escalated = append(rep.Escalated, m)
		case DeEscalated:
			rep.DeEscalated = append(rep.DeEscalated, m)
		}
	}
	return rep
}

func classify(from, to risk.Level) Direction {
	switch {
	case !from.IsElevated() && to.IsElevated():
		return Escalated
	case from.IsElevated() && !to.IsElevated():
		return DeEscalated
	default:
		return Shifted
	}
}

// FieldDelta is one changed field of a risk present in both periods.
type FieldDelta struct {
	Field string      `json:"field"`
	From  interface{} `json:"from"`
	To    interface{} `json:"to"`
}

// RiskDelta lists the changed fields of one risk.
type RiskDelta struct {
	RiskCode string       `json:"risk_code"`
	Fields   []FieldDelta `json:"fields"`
}

// Comparison is the full diff of two committed periods.
type Comparison struct {
	From        Period          `json:"from"`
	To          Period          `json:"to"`
	NewRisks    []*Snapshot     `json:"new_risks"`
	ClosedRisks []*Snapshot     `json:"closed_risks"`
	Changed     []RiskDelta     `json:"changed"`
	Migrations  MigrationReport `json:"migrations"`
}

// Compare diffs snapshot set a (earlier) against b.
func Compare(from, to Period, a, b []*Snapshot) Comparison {
	cmp := Comparison{
		From:        from,
		To:          to,
		NewRisks:    []*Snapshot{},
		ClosedRisks: []*Snapshot{},
		Changed:     []RiskDelta{},
		Migrations:  AnalyzeMigrations(from, to, a, b),
	}
	inA, inB := indexByCode(a), indexByCode(b)

	for _, sb := range sortedByCode(b) {
		sa, ok := inA[sb.RiskCode]
		if !ok {
			cmp.NewRisks = append(cmp.NewRisks, sb)
			continue
		}
		if fields := diff(sa, sb); len(fields) > 0 {
			cmp.Changed = append(cmp.Changed, RiskDelta{RiskCode: sb.RiskCode, Fields: fields})
		}
	}
	for _, sa := range sortedByCode(a) {
		if _, ok := inB[sa.RiskCode]; !ok {
			cmp.ClosedRisks = append(cmp.ClosedRisks, sa)
		}
	}
	return cmp
}

func diff(a, b *Snapshot) []FieldDelta {
	var out []FieldDelta
	str := func(field, x, y string) {
		if x != y {
			out = append(out, FieldDelta{Field: field, From: x, To: y})
		}
	}
	num := func(field string, x, y int) {
		if x != y {
			out = append(out, FieldDelta{Field: field, From: x, To: y})
		}
	}
	str("title", a.Title, b.Title)
	str("category", a.Category, b.Category)
	str("division", a.Division, b.Division)
	str("department", a.Department, b.Department)
	str("owner", a.Owner, b.Owner)
	str("status", string(a.Status), string(b.Status))
	num("likelihood_inherent", a.LikelihoodInherent, b.LikelihoodInherent)
	num("impact_inherent", a.ImpactInherent, b.ImpactInherent)
	num("score_inherent", a.InherentScore, b.InherentScore)
	num("residual_likelihood", a.ResidualLikelihood, b.ResidualLikelihood)
	num("residual_impact", a.ResidualImpact, b.ResidualImpact)
	num("residual_score", a.ResidualScore, b.ResidualScore)
	return out
}

func indexByCode(snaps []*Snapshot) map[string]*Snapshot {
	m := make(map[string]*Snapshot, len(snaps))
	for _, s := range snaps {
		m[s.RiskCode] = s
	}
	return m
}

func sortedByCode(snaps []*Snapshot) []*Snapshot {
	out := append([]*Snapshot(nil), snaps...)
	sort.Slice(out, func(i, j int) bool { return out[i].RiskCode < out[j].RiskCode })
	return out
}

//Personal.AI order the ending
