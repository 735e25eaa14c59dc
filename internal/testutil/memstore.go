package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// MemStore is an in-memory store.Store with the same uniqueness, version
// and not-found semantics as the Postgres repositories.
//
// WithTx runs against a private copy of the data and swaps it in on success,
// so transactions are serialized. Writes made through Repos() while a
// transaction is open are overwritten when it commits.
type MemStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *memState

	faultMu sync.Mutex
	faults  map[string]error
	calls   map[string]int
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		state:  newMemState(),
		faults: make(map[string]error),
		calls:  make(map[string]int),
	}
}

// FailOn makes every later call of op return err. Ops are named
// "<repo>.<Method>", for example "alerts.Update" or "treatment.Append".
// A nil err clears the fault.
func (s *MemStore) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls returns how many times op has been invoked.
func (s *MemStore) Calls(op string) int {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.calls[op]
}

func (s *MemStore) enter(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.calls[op]++
	return s.faults[op]
}

func (s *MemStore) Repos() store.Repositories {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return s.reposFor(st)
}

func (s *MemStore) WithTx(ctx context.Context, fn func(tx store.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	work := s.state.clone()
	s.mu.Unlock()

	if err := fn(s.reposFor(work)); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

func (s *MemStore) reposFor(st *memState) store.Repositories {
	return store.Repositories{
		Risks:     &memRiskRepo{s: s, st: st},
		Alerts:    &memAlertRepo{s: s, st: st},
		Events:    &memEventRepo{s: s, st: st},
		Treatment: &memTreatmentRepo{s: s, st: st},
		Periods:   &memPeriodRepo{s: s, st: st},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// State
// ─────────────────────────────────────────────────────────────────────────────

type memState struct {
	mu        sync.Mutex
	risks     map[string]*risk.Risk
	controls  map[string]*risk.Control
	events    map[string]*intelligence.ExternalEvent
	alerts    map[string]*intelligence.Alert
	entries   []*treatment.Entry
	seq       int64
	commits   map[string]*period.Commit
	snapshots []*period.Snapshot
}

func newMemState() *memState {
	return &memState{
		risks:    make(map[string]*risk.Risk),
		controls: make(map[string]*risk.Control),
		events:   make(map[string]*intelligence.ExternalEvent),
		alerts:   make(map[string]*intelligence.Alert),
		commits:  make(map[string]*period.Commit),
	}
}

func (st *memState) clone() *memState {
	st.mu.Lock()
	defer st.mu.Unlock()
	c := newMemState()
	for k, v := range st.risks {
		c.risks[k] = copyRisk(v)
	}
	for k, v := range st.controls {
		c.controls[k] = copyControl(v)
	}
	for k, v := range st.events {
		ev := *v
		c.events[k] = &ev
	}
	for k, v := range st.alerts {
		c.alerts[k] = copyAlert(v)
	}
	c.entries = make([]*treatment.Entry, len(st.entries))
	for i, e := range st.entries {
		c.entries[i] = copyEntry(e)
	}
	c.seq = st.seq
	for k, v := range st.commits {
		cm := *v
		c.commits[k] = &cm
	}
	c.snapshots = make([]*period.Snapshot, len(st.snapshots))
	for i, sn := range st.snapshots {
		cp := *sn
		c.snapshots[i] = &cp
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyRisk(r *risk.Risk) *risk.Risk {
	c := *r
	c.LastResidualCalc = copyTime(r.LastResidualCalc)
	return &c
}

func copyControl(ctl *risk.Control) *risk.Control {
	c := *ctl
	c.DeletedAt = copyTime(ctl.DeletedAt)
	return &c
}

func copyAlert(a *intelligence.Alert) *intelligence.Alert {
	c := *a
	c.SuggestedControls = append([]string{}, a.SuggestedControls...)
	c.ReviewedAt = copyTime(a.ReviewedAt)
	c.AppliedAt = copyTime(a.AppliedAt)
	return &c
}

func copyEntry(e *treatment.Entry) *treatment.Entry {
	c := *e
	c.DeletedAt = copyTime(e.DeletedAt)
	return &c
}

// ─────────────────────────────────────────────────────────────────────────────
// Risks
// ─────────────────────────────────────────────────────────────────────────────

type memRiskRepo struct {
	s  *MemStore
	st *memState
}

func riskNotFound(detail string) error {
	return errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail(detail)
}

func (r *memRiskRepo) Create(_ context.Context, rk *risk.Risk) error {
	if err := r.s.enter("risks.Create"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.risks {
		if existing.OrganizationID == rk.OrganizationID && existing.RiskCode == rk.RiskCode {
			return errors.New(errors.ErrCodeRiskCodeExists, "risk code already exists").WithDetail("risk_code=" + rk.RiskCode)
		}
	}
	if _, ok := r.st.risks[rk.ID]; ok {
		return errors.NewConflict("risk %s already exists", rk.ID)
	}
	r.st.risks[rk.ID] = copyRisk(rk)
	return nil
}

func (r *memRiskRepo) GetByID(_ context.Context, orgID, id string) (*risk.Risk, error) {
	if err := r.s.enter("risks.GetByID"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	rk, ok := r.st.risks[id]
	if !ok || rk.OrganizationID != orgID {
		return nil, riskNotFound("id=" + id)
	}
	return copyRisk(rk), nil
}

func (r *memRiskRepo) GetByCode(_ context.Context, orgID, code string) (*risk.Risk, error) {
	if err := r.s.enter("risks.GetByCode"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, rk := range r.st.risks {
		if rk.OrganizationID == orgID && rk.RiskCode == code {
			return copyRisk(rk), nil
		}
	}
	return nil, riskNotFound("risk_code=" + code)
}

func (r *memRiskRepo) LockForUpdate(ctx context.Context, orgID, id string) (*risk.Risk, error) {
	return r.GetByID(ctx, orgID, id)
}

func (r *memRiskRepo) List(_ context.Context, orgID string, opts ...risk.ListOption) ([]*risk.Risk, int64, error) {
	if err := r.s.enter("risks.List"); err != nil {
		return nil, 0, err
	}
	o := risk.ApplyListOptions(opts...)
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var matched []*risk.Risk
	for _, rk := range r.st.risks {
		if rk.OrganizationID != orgID {
			continue
		}
		if len(o.Statuses) > 0 {
			if !containsStatus(o.Statuses, rk.Status) {
				continue
			}
		} else if !o.IncludeArchived && rk.IsArchived() {
			continue
		}
		if o.Category != "" && rk.Category != o.Category {
			continue
		}
		if o.Owner != "" && rk.Owner != o.Owner {
			continue
		}
		matched = append(matched, copyRisk(rk))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RiskCode < matched[j].RiskCode })
	total := int64(len(matched))
	return page(matched, o.Limit, o.Offset), total, nil
}

func containsStatus(list []risk.Status, s risk.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *memRiskRepo) Update(_ context.Context, rk *risk.Risk) error {
	if err := r.s.enter("risks.Update"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.risks[rk.ID]
	if !ok || stored.OrganizationID != rk.OrganizationID {
		return riskNotFound("id=" + rk.ID)
	}
	if stored.Version != rk.Version {
		return errors.New(errors.ErrCodeRiskVersionConflict, "risk was modified concurrently").
			WithDetail(fmt.Sprintf("id=%s version=%d", rk.ID, rk.Version))
	}
	rk.Version++
	rk.UpdatedAt = time.Now().UTC()
	r.st.risks[rk.ID] = copyRisk(rk)
	return nil
}

func controlNotFound(id string) error {
	return errors.New(errors.ErrCodeControlNotFound, "control not found").WithDetail("id=" + id)
}

func (r *memRiskRepo) CreateControl(_ context.Context, c *risk.Control) error {
	if err := r.s.enter("risks.CreateControl"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.risks[c.RiskID]; !ok {
		return errors.New(errors.ErrCodeDatabaseError, "control references unknown risk").WithDetail("risk_id=" + c.RiskID)
	}
	r.st.controls[c.ID] = copyControl(c)
	return nil
}

func (r *memRiskRepo) GetControl(_ context.Context, riskID, id string) (*risk.Control, error) {
	if err := r.s.enter("risks.GetControl"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.controls[id]
	if !ok || c.RiskID != riskID || !c.Active() {
		return nil, controlNotFound(id)
	}
	return copyControl(c), nil
}

func (r *memRiskRepo) UpdateControl(_ context.Context, c *risk.Control) error {
	if err := r.s.enter("risks.UpdateControl"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.controls[c.ID]
	if !ok || stored.RiskID != c.RiskID || !stored.Active() {
		return controlNotFound(c.ID)
	}
	c.UpdatedAt = time.Now().UTC()
	c.CreatedAt = stored.CreatedAt
	c.DeletedAt = nil
	r.st.controls[c.ID] = copyControl(c)
	return nil
}

func (r *memRiskRepo) SoftDeleteControl(_ context.Context, riskID, id string) error {
	if err := r.s.enter("risks.SoftDeleteControl"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.controls[id]
	if !ok || stored.RiskID != riskID || !stored.Active() {
		return controlNotFound(id)
	}
	now := time.Now().UTC()
	stored.DeletedAt = &now
	stored.UpdatedAt = now
	return nil
}

func (r *memRiskRepo) ListControls(ctx context.Context, riskID string) ([]risk.Control, error) {
	byRisk, err := r.ListControlsForRisks(ctx, []string{riskID})
	if err != nil {
		return nil, err
	}
	return byRisk[riskID], nil
}

func (r *memRiskRepo) ListControlsForRisks(_ context.Context, riskIDs []string) (map[string][]risk.Control, error) {
	if err := r.s.enter("risks.ListControlsForRisks"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(riskIDs))
	for _, id := range riskIDs {
		want[id] = true
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make(map[string][]risk.Control, len(riskIDs))
	var all []*risk.Control
	for _, c := range r.st.controls {
		if want[c.RiskID] && c.Active() {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	for _, c := range all {
		out[c.RiskID] = append(out[c.RiskID], *copyControl(c))
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events and alerts
// ─────────────────────────────────────────────────────────────────────────────

type memEventRepo struct {
	s  *MemStore
	st *memState
}

func (r *memEventRepo) Save(_ context.Context, ev *intelligence.ExternalEvent) (*intelligence.ExternalEvent, bool, error) {
	if err := r.s.enter("events.Save"); err != nil {
		return nil, false, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, stored := range r.st.events {
		if stored.OrganizationID == ev.OrganizationID && stored.Source == ev.Source && stored.ExternalID == ev.ExternalID {
			cp := *stored
			return &cp, false, nil
		}
	}
	cp := *ev
	r.st.events[ev.ID] = &cp
	out := cp
	return &out, true, nil
}

func (r *memEventRepo) GetByID(_ context.Context, orgID, id string) (*intelligence.ExternalEvent, error) {
	if err := r.s.enter("events.GetByID"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	ev, ok := r.st.events[id]
	if !ok || ev.OrganizationID != orgID {
		return nil, errors.New(errors.ErrCodeEventNotFound, "event not found").WithDetail("id=" + id)
	}
	cp := *ev
	return &cp, nil
}

type memAlertRepo struct {
	s  *MemStore
	st *memState
}

func alertNotFound(id string) error {
	return errors.New(errors.ErrCodeAlertNotFound, "alert not found").WithDetail("id=" + id)
}

func (r *memAlertRepo) Create(_ context.Context, a *intelligence.Alert) error {
	if err := r.s.enter("alerts.Create"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, stored := range r.st.alerts {
		if stored.EventID == a.EventID && stored.RiskID == a.RiskID {
			return errors.New(errors.ErrCodeConflict, "alert already exists for event and risk").
				WithDetail(fmt.Sprintf("event_id=%s risk_id=%s", a.EventID, a.RiskID))
		}
	}
	r.st.alerts[a.ID] = copyAlert(a)
	return nil
}

func (r *memAlertRepo) GetByID(_ context.Context, orgID, id string) (*intelligence.Alert, error) {
	if err := r.s.enter("alerts.GetByID"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, ok := r.st.alerts[id]
	if !ok || a.OrganizationID != orgID {
		return nil, alertNotFound(id)
	}
	return copyAlert(a), nil
}

func (r *memAlertRepo) List(_ context.Context, orgID string, f intelligence.AlertFilter) ([]*intelligence.Alert, int64, error) {
	if err := r.s.enter("alerts.List"); err != nil {
		return nil, 0, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var matched []*intelligence.Alert
	for _, a := range r.st.alerts {
		if a.OrganizationID != orgID {
			continue
		}
		if len(f.Statuses) > 0 && !containsAlertStatus(f.Statuses, a.Status) {
			continue
		}
		if f.RiskCode != "" && a.RiskCode != f.RiskCode {
			continue
		}
		if a.ConfidenceScore < f.MinConfidence {
			continue
		}
		matched = append(matched, copyAlert(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	p := f.Pagination.Normalize()
	return page(matched, p.PageSize, p.Offset()), int64(len(matched)), nil
}

func containsAlertStatus(list []intelligence.AlertStatus, s intelligence.AlertStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memAlertRepo) Update(_ context.Context, a *intelligence.Alert) error {
	if err := r.s.enter("alerts.Update"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.alerts[a.ID]
	if !ok || stored.OrganizationID != a.OrganizationID {
		return alertNotFound(a.ID)
	}
	if stored.Version != a.Version {
		return errors.New(errors.ErrCodeConflict, "alert was modified concurrently").WithDetail("id=" + a.ID)
	}
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	stored.Status = a.Status
	stored.ReviewedBy = a.ReviewedBy
	stored.ReviewedAt = copyTime(a.ReviewedAt)
	stored.AppliedAt = copyTime(a.AppliedAt)
	stored.Version = a.Version
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (r *memAlertRepo) ListApplied(_ context.Context, riskID string) ([]*intelligence.Alert, error) {
	if err := r.s.enter("alerts.ListApplied"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*intelligence.Alert
	for _, a := range r.st.alerts {
		if a.RiskID == riskID && a.Status == intelligence.AlertApplied {
			out = append(out, copyAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := *out[i].AppliedAt, *out[j].AppliedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memAlertRepo) ExistsForEventRisk(_ context.Context, eventID, riskID string) (bool, error) {
	if err := r.s.enter("alerts.ExistsForEventRisk"); err != nil {
		return false, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, a := range r.st.alerts {
		if a.EventID == eventID && a.RiskID == riskID {
			return true, nil
		}
	}
	return false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Treatment log
// ─────────────────────────────────────────────────────────────────────────────

type memTreatmentRepo struct {
	s  *MemStore
	st *memState
}

func (r *memTreatmentRepo) Append(_ context.Context, e *treatment.Entry) error {
	if err := r.s.enter("treatment.Append"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	head := treatment.GenesisHash
	for i := len(r.st.entries) - 1; i >= 0; i-- {
		prev := r.st.entries[i]
		if prev.OrganizationID == e.OrganizationID && prev.RiskCode == e.RiskCode {
			head = prev.EntryHash
			break
		}
	}
	if err := e.Seal(head); err != nil {
		return err
	}
	r.st.seq++
	e.Seq = r.st.seq
	r.st.entries = append(r.st.entries, copyEntry(e))
	return nil
}

func (r *memTreatmentRepo) GetByID(_ context.Context, orgID, id string) (*treatment.Entry, error) {
	if err := r.s.enter("treatment.GetByID"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if e := r.find(orgID, id); e != nil {
		return copyEntry(e), nil
	}
	return nil, errors.New(errors.ErrCodeTreatmentEntryNotFound, "treatment entry not found").WithDetail("id=" + id)
}

func (r *memTreatmentRepo) find(orgID, id string) *treatment.Entry {
	for _, e := range r.st.entries {
		if e.ID == id && e.OrganizationID == orgID {
			return e
		}
	}
	return nil
}

func (r *memTreatmentRepo) ListByRisk(_ context.Context, orgID, riskCode string, includeArchived bool) ([]*treatment.Entry, error) {
	if err := r.s.enter("treatment.ListByRisk"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*treatment.Entry{}
	for _, e := range r.st.entries {
		if e.OrganizationID != orgID || e.RiskCode != riskCode {
			continue
		}
		if !includeArchived && e.IsArchived() {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].AppliedAt.After(out[j].AppliedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func (r *memTreatmentRepo) ListChain(_ context.Context, orgID, riskCode string) ([]*treatment.Entry, error) {
	if err := r.s.enter("treatment.ListChain"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*treatment.Entry{}
	for _, e := range r.st.entries {
		if e.OrganizationID == orgID && e.RiskCode == riskCode {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (r *memTreatmentRepo) Archive(_ context.Context, orgID, id string) error {
	if err := r.s.enter("treatment.Archive"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e := r.find(orgID, id)
	if e == nil {
		return errors.New(errors.ErrCodeTreatmentEntryNotFound, "treatment entry not found").WithDetail("id=" + id)
	}
	if e.DeletedAt == nil {
		now := time.Now().UTC()
		e.DeletedAt = &now
	}
	return nil
}

// TamperEntry overwrites a stored entry's notes without resealing it. Tests
// use it to simulate an out-of-band edit.
func (s *MemStore) TamperEntry(id, notes string) bool {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, e := range st.entries {
		if e.ID == id {
			e.Notes = notes
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Periods
// ─────────────────────────────────────────────────────────────────────────────

type memPeriodRepo struct {
	s  *MemStore
	st *memState
}

func (r *memPeriodRepo) Create(_ context.Context, c *period.Commit, snapshots []*period.Snapshot) error {
	if err := r.s.enter("periods.Create"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.commits {
		if existing.OrganizationID == c.OrganizationID && existing.Period == c.Period {
			return errors.New(errors.ErrCodePeriodAlreadyCommitted, "period already committed").
				WithDetail("period=" + c.Period.String())
		}
	}
	cp := *c
	r.st.commits[c.ID] = &cp
	for _, sn := range snapshots {
		s := *sn
		r.st.snapshots = append(r.st.snapshots, &s)
	}
	return nil
}

func (r *memPeriodRepo) GetCommit(_ context.Context, orgID string, p period.Period) (*period.Commit, error) {
	if err := r.s.enter("periods.GetCommit"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.commits {
		if c.OrganizationID == orgID && c.Period == p {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errors.New(errors.ErrCodePeriodNotFound, "period not committed").WithDetail("period=" + p.String())
}

func (r *memPeriodRepo) ListCommits(_ context.Context, orgID string) ([]*period.Commit, error) {
	if err := r.s.enter("periods.ListCommits"); err != nil {
		return nil, err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*period.Commit{}
	for _, c := range r.st.commits {
		if c.OrganizationID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (r *memPeriodRepo) GetSnapshots(_ context.Context, orgID string, p period.Period) ([]*period.Snapshot, error) {
	if err := r.s.enter("periods.GetSnapshots"); err != nil {
		return nil, err
	}
	return r.snapshotsWhere(func(s *period.Snapshot) bool {
		return s.OrganizationID == orgID && s.Period == p
	}), nil
}

func (r *memPeriodRepo) ListAllSnapshots(_ context.Context, orgID string) ([]*period.Snapshot, error) {
	if err := r.s.enter("periods.ListAllSnapshots"); err != nil {
		return nil, err
	}
	return r.snapshotsWhere(func(s *period.Snapshot) bool { return s.OrganizationID == orgID }), nil
}

func (r *memPeriodRepo) snapshotsWhere(keep func(*period.Snapshot) bool) []*period.Snapshot {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*period.Snapshot{}
	for _, sn := range r.st.snapshots {
		if keep(sn) {
			cp := *sn
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].RiskCode < out[j].RiskCode
	})
	return out
}

func (r *memPeriodRepo) SetArchiveKey(_ context.Context, commitID, key string) error {
	if err := r.s.enter("periods.SetArchiveKey"); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.commits[commitID]
	if !ok {
		return errors.New(errors.ErrCodePeriodNotFound, "period commit not found").WithDetail("commit_id=" + commitID)
	}
	c.ArchiveKey = key
	return nil
}

//Personal.AI order the ending
