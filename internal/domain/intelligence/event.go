package intelligence

import (
	"context"
	"strings"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// ExternalEvent is an immutable fact ingested from an outside feed.
type ExternalEvent struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Source         string    `json:"source"`
	ExternalID     string    `json:"external_id"`
	EventType      string    `json:"event_type"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	URL            string    `json:"url,omitempty"`
	PublishedDate  time.Time `json:"published_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// Normalize assigns an ID when missing and trims identity fields.
func (e *ExternalEvent) Normalize() {
	if e.ID == "" {
		e.ID = string(common.NewID())
	}
	e.Source = strings.TrimSpace(e.Source)
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	if e.ExternalID == "" {
		e.ExternalID = e.URL
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

func (e *ExternalEvent) Validate() error {
	if e.OrganizationID == "" {
		return errors.NewValidationError("organization_id", "organization is required")
	}
	if e.Source == "" {
		return errors.NewValidationError("source", "event source is required")
	}
	if e.ExternalID == "" {
		return errors.NewValidationError("external_id", "event needs an external id or url")
	}
	if strings.TrimSpace(e.Title) == "" {
		return errors.NewValidationError("title", "event title is required")
	}
	if e.PublishedDate.IsZero() {
		return errors.NewValidationError("published_date", "published date is required")
	}
	return nil
}

// ClassificationResult is the classifier's structured verdict for one
// (risk, event) pair.
type ClassificationResult struct {
	ConfidenceScore           int      `json:"confidence_score"`
	SuggestedLikelihoodChange int      `json:"suggested_likelihood_change"`
	ImpactChange              int      `json:"impact_change"`
	Reasoning                 string   `json:"reasoning"`
	SuggestedControls         []string `json:"suggested_controls"`
	ImpactAssessment          string   `json:"impact_assessment"`
}

// Validate rejects confidence scores outside 0..100.
func (c *ClassificationResult) Validate() error {
	if c.ConfidenceScore < 0 || c.ConfidenceScore > 100 {
		return errors.NewValidationError("confidence_score", "confidence must be between 0 and 100")
	}
	return nil
}

// Relevant reports whether the result clears the alert threshold.
func (c *ClassificationResult) Relevant(threshold int) bool {
	return c.ConfidenceScore >= threshold
}

// Classifier correlates an event with a risk. Implementations call an
// external service; failures are surfaced as ExternalServiceFailure.
type Classifier interface {
	Classify(ctx context.Context, r *risk.Risk, ev *ExternalEvent) (*ClassificationResult, error)
}

//Personal.AI order the ending
