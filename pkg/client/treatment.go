package client

import (
	"context"
	stderrors "errors"
	"net/url"
	"time"
)

// TreatmentEntry is one hash-chained record of a risk adjustment.
type TreatmentEntry struct {
	ID                 string     `json:"id"`
	Seq                int64      `json:"seq"`
	OrganizationID     string     `json:"organization_id"`
	RiskCode           string     `json:"risk_code"`
	AlertID            string     `json:"alert_id"`
	Action             string     `json:"action_taken"`
	PreviousLikelihood int        `json:"previous_likelihood"`
	NewLikelihood      int        `json:"new_likelihood"`
	PreviousImpact     int        `json:"previous_impact"`
	NewImpact          int        `json:"new_impact"`
	Notes              string     `json:"notes,omitempty"`
	Actor              string     `json:"actor"`
	AppliedAt          time.Time  `json:"applied_at"`
	PrevHash           string     `json:"prev_hash"`
	EntryHash          string     `json:"entry_hash"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// ChainReport is the outcome of re-hashing one risk's treatment log.
type ChainReport struct {
	OrganizationID string `json:"organization_id"`
	RiskCode       string `json:"risk_code"`
	Entries        int    `json:"entries"`
	Valid          bool   `json:"valid"`
	BrokenAt       string `json:"broken_at,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// TreatmentClient covers /treatment-log.
type TreatmentClient struct {
	client *Client
}

// Log returns a risk's entries in chain order.
func (t *TreatmentClient) Log(ctx context.Context, riskCode string, includeArchived bool) ([]*TreatmentEntry, error) {
	v := url.Values{}
	if includeArchived {
		v.Set("include_archived", "true")
	}
	var out struct {
		Items []*TreatmentEntry `json:"items"`
	}
	if err := t.client.get(ctx, withQuery("/treatment-log/"+url.PathEscape(riskCode), v), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Verify re-hashes a risk's chain. A broken chain is a normal outcome:
// the report comes back with Valid false and a nil error.
func (t *TreatmentClient) Verify(ctx context.Context, riskCode string) (*ChainReport, error) {
	var out ChainReport
	err := t.client.get(ctx, "/treatment-log/"+url.PathEscape(riskCode)+"/verify", &out)
	if err != nil {
		var apiErr *APIError
		if stderrors.As(err, &apiErr) && apiErr.IsConflict() && out.RiskCode != "" {
			return &out, nil
		}
		return nil, err
	}
	return &out, nil
}

// Archive soft-deletes one entry. The chain still verifies over it.
func (t *TreatmentClient) Archive(ctx context.Context, entryID string) error {
	return t.client.post(ctx, "/treatment-log/entries/"+url.PathEscape(entryID)+"/archive", nil, nil)
}

func (t *TreatmentClient) BatchArchive(ctx context.Context, entryIDs []string) (*BatchResult, error) {
	var out BatchResult
	err := t.client.post(ctx, "/treatment-log/archive", map[string]interface{}{"entry_ids": entryIDs}, &out)
	return &out, err
}

//Personal.AI order the ending
