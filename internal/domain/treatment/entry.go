// Package treatment holds the append-only audit trail of alert lifecycle
// actions. Entries are hash-chained per risk so tampering is detectable.
package treatment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// Action is the lifecycle transition an entry records.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionApply  Action = "apply"
	ActionUndo   Action = "undo"
)

// GenesisHash is the prev_hash of the first entry of every chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one immutable audit record. Only DeletedAt may change after
// insert, and it is excluded from the hash.
type Entry struct {
	ID                 string     `json:"id"`
	Seq                int64      `json:"seq"`
	OrganizationID     string     `json:"organization_id"`
	RiskCode           string     `json:"risk_code"`
	AlertID            string     `json:"alert_id"`
	Action             Action     `json:"action_taken"`
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

// Values is a likelihood/impact pair captured before or after an action.
type Values struct {
	Likelihood int
	Impact     int
}

// NewEntry builds an unsealed entry. The repository seals it on append.
func NewEntry(orgID, riskCode, alertID string, action Action, before, after Values, notes, actor string) *Entry {
	return &Entry{
		ID:                 string(common.NewID()),
		OrganizationID:     orgID,
		RiskCode:           riskCode,
		AlertID:            alertID,
		Action:             action,
		PreviousLikelihood: before.Likelihood,
		NewLikelihood:      after.Likelihood,
		PreviousImpact:     before.Impact,
		NewImpact:          after.Impact,
		Notes:              notes,
		Actor:              actor,
		AppliedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}
}

// IsArchived reports a soft-deleted entry.
func (e *Entry) IsArchived() bool { return e.DeletedAt != nil }

// hashedContent lists the fields covered by the entry hash.
type hashedContent struct {
	ID                 string `json:"id"`
	OrganizationID     string `json:"organization_id"`
	RiskCode           string `json:"risk_code"`
	AlertID            string `json:"alert_id"`
	Action             Action `json:"action"`
	PreviousLikelihood int    `json:"previous_likelihood"`
	NewLikelihood      int    `json:"new_likelihood"`
	PreviousImpact     int    `json:"previous_impact"`
	NewImpact          int    `json:"new_impact"`
	Notes              string `json:"notes"`
	Actor              string `json:"actor"`
	AppliedAt          string `json:"applied_at"`
}

// ComputeHash returns sha256(prevHash || JCS(content)) as hex.
func (e *Entry) ComputeHash(prevHash string) (string, error) {
	raw, err := json.Marshal(hashedContent{
		ID:                 e.ID,
		OrganizationID:     e.OrganizationID,
		RiskCode:           e.RiskCode,
		AlertID:            e.AlertID,
		Action:             e.Action,
		PreviousLikelihood: e.PreviousLikelihood,
		NewLikelihood:      e.NewLikelihood,
		PreviousImpact:     e.PreviousImpact,
		NewImpact:          e.NewImpact,
		Notes:              e.Notes,
		Actor:              e.Actor,
		AppliedAt:          e.AppliedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "marshal treatment entry")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "canonicalize treatment entry")
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Seal links the entry to prevHash and stores its own hash.
func (e *Entry) Seal(prevHash string) error {
	if prevHash == "" {
		prevHash = GenesisHash
	}
	sum, err := e.ComputeHash(prevHash)
	if err != nil {
		return err
	}
	e.PrevHash = prevHash
	e.EntryHash = sum
	return nil
}

// ChainReport is the outcome of verifying one risk's chain.
type ChainReport struct {
	OrganizationID string `json:"organization_id"`
	RiskCode       string `json:"risk_code"`
	Entries        int    `json:"entries"`
	Valid          bool   `json:"valid"`
	BrokenAt       string `json:"broken_at,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// VerifyChain walks entries oldest-first and reports the first broken link.
func VerifyChain(orgID, riskCode string, entries []*Entry) ChainReport {
	rep := ChainReport{OrganizationID: orgID, RiskCode: riskCode, Entries: len(entries), Valid: true}
	prev := GenesisHash
	for _, e := range entries {
		if e.PrevHash != prev {
			rep.Valid, rep.BrokenAt, rep.Reason = false, e.ID, "prev_hash does not match preceding entry"
			return rep
		}
		sum, err := e.ComputeHash(prev)
		if err != nil || sum != e.EntryHash {
			rep.Valid, rep.BrokenAt, rep.Reason = false, e.ID, "entry_hash does not match content"
			return rep
		}
		prev = e.EntryHash
	}
	return rep
}

// Repository persists entries. Append seals the entry against the current
// chain head and must run in the same transaction as the state change.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, orgID, id string) (*Entry, error)
	// ListByRisk returns entries newest-first.
	ListByRisk(ctx context.Context, orgID, riskCode string, includeArchived bool) ([]*Entry, error)
	// ListChain returns every entry, archived included, oldest-first.
	ListChain(ctx context.Context, orgID, riskCode string) ([]*Entry, error)
	Archive(ctx context.Context, orgID, id string) error
}

//Personal.AI order the ending
