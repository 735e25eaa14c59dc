package period

import (
	"context"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// Commit marks a period as frozen. Exactly one exists per
// (organization, year, quarter).
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

// Snapshot is a risk frozen at commit time. It has no update path.
type Snapshot struct {
	ID                 string      `json:"id"`
	CommitID           string      `json:"commit_id"`
	OrganizationID     string      `json:"organization_id"`
	Period             Period      `json:"period"`
	RiskID             string      `json:"risk_id"`
	RiskCode           string      `json:"risk_code"`
	Title              string      `json:"title"`
	Category           string      `json:"category"`
	Division           string      `json:"division,omitempty"`
	Department         string      `json:"department,omitempty"`
	Owner              string      `json:"owner,omitempty"`
	Status             risk.Status `json:"status"`
	LikelihoodInherent int         `json:"likelihood_inherent"`
	ImpactInherent     int         `json:"impact_inherent"`
	InherentScore      int         `json:"score_inherent"`
	ResidualLikelihood int         `json:"residual_likelihood"`
	ResidualImpact     int         `json:"residual_impact"`
	ResidualScore      int         `json:"residual_score"`
	FormulaVersion     string      `json:"formula_version"`
	CreatedAt          time.Time   `json:"created_at"`
}

// NewCommit prepares a commit and one snapshot per risk. Archived risks are
// skipped.
func NewCommit(orgID string, p Period, notes, actor, formula string, risks []*risk.Risk) (*Commit, []*Snapshot) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &Commit{
		ID:             string(common.NewID()),
		OrganizationID: orgID,
		Period:         p,
		CommittedAt:    now,
		CommittedBy:    actor,
		Notes:          notes,
		FormulaVersion: formula,
	}
	snaps := make([]*Snapshot, 0, len(risks))
	for _, r := range risks {
		if r.IsArchived() {
			continue
		}
		snaps = append(snaps, &Snapshot{
			ID:                 string(common.NewID()),
			CommitID:           c.ID,
			OrganizationID:     orgID,
			Period:             p,
			RiskID:             r.ID,
			RiskCode:           r.RiskCode,
			Title:              r.Title,
			Category:           r.Category,
			Division:           r.Division,
			Department:         r.Department,
			Owner:              r.Owner,
			Status:             r.Status,
			LikelihoodInherent: r.LikelihoodInherent,
			ImpactInherent:     r.ImpactInherent,
			InherentScore:      r.InherentScore,
			ResidualLikelihood: r.ResidualLikelihood,
			ResidualImpact:     r.ResidualImpact,
			ResidualScore:      r.ResidualScore,
			FormulaVersion:     r.FormulaVersion,
			CreatedAt:          now,
		})
	}
	c.RisksCount = len(snaps)
	return c, snaps
}

// ResidualLevel classifies the frozen residual score.
func (s *Snapshot) ResidualLevel() risk.Level { return risk.LevelForScore(s.ResidualScore) }

// Repository persists commits and snapshots.
type Repository interface {
	// Create inserts the commit and all snapshots atomically. A second
	// commit for the same period yields PRD_003.
	Create(ctx context.Context, c *Commit, snapshots []*Snapshot) error
	GetCommit(ctx context.Context, orgID string, p Period) (*Commit, error)
	ListCommits(ctx context.Context, orgID string) ([]*Commit, error)
	GetSnapshots(ctx context.Context, orgID string, p Period) ([]*Snapshot, error)
	// ListAllSnapshots returns every snapshot of the organization ordered by
	// period then risk code.
	ListAllSnapshots(ctx context.Context, orgID string) ([]*Snapshot, error)
	SetArchiveKey(ctx context.Context, commitID, key string) error
}

//Personal.AI order the ending
