package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	riskapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

// RiskHandler serves the risk register and its controls.
type RiskHandler struct {
	svc     riskapp.Service
	logger  logging.Logger
	maxBody int64
}

func NewRiskHandler(svc riskapp.Service, logger logging.Logger, maxBody int64) *RiskHandler {
	return &RiskHandler{svc: svc, logger: logger, maxBody: maxBody}
}

// RegisterRoutes mounts the register under /risks.
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/risks", func(rr chi.Router) {
		rr.Get("/", h.List)
		rr.Post("/", h.Create)
		rr.Post("/recalculate", h.RecalculateAll)
		rr.Get("/by-code/{riskCode}", h.GetByCode)

		rr.Route("/{riskID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Patch("/", h.Update)
			item.Put("/status", h.ChangeStatus)

			item.Get("/controls", h.ListControls)
			item.Post("/controls", h.AddControl)
			item.Put("/controls/{controlID}", h.UpdateControl)
			item.Delete("/controls/{controlID}", h.RemoveControl)
		})
	})
}

func (h *RiskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req riskapp.CreateRiskRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)

	out, err := h.svc.CreateRisk(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *RiskHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetRisk(r.Context(), orgFromRequest(r), chi.URLParam(r, "riskID"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RiskHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetRiskByCode(r.Context(), orgFromRequest(r), chi.URLParam(r, "riskCode"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// List supports ?status=OPEN,MONITORING&category=&owner=&include_archived=true.
func (h *RiskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := riskapp.ListRisksRequest{
		OrganizationID:  orgFromRequest(r),
		Statuses:        queryList(r, "status"),
		Category:        q.Get("category"),
		Owner:           q.Get("owner"),
		IncludeArchived: q.Get("include_archived") == "true",
		Pagination:      parsePagination(r),
	}
	out, err := h.svc.ListRisks(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RiskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req riskapp.UpdateRiskRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)
	req.RiskID = chi.URLParam(r, "riskID")

	out, err := h.svc.UpdateRisk(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RiskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req riskapp.ChangeStatusRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)
	req.RiskID = chi.URLParam(r, "riskID")

	out, err := h.svc.ChangeStatus(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RiskHandler) ListControls(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListControls(r.Context(), orgFromRequest(r), chi.URLParam(r, "riskID"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *RiskHandler) AddControl(w http.ResponseWriter, r *http.Request) {
	h.writeControl(w, r, http.StatusCreated, h.svc.AddControl)
}

func (h *RiskHandler) UpdateControl(w http.ResponseWriter, r *http.Request) {
	h.writeControl(w, r, http.StatusOK, h.svc.UpdateControl)
}

func (h *RiskHandler) writeControl(w http.ResponseWriter, r *http.Request, status int,
	op func(ctx context.Context, req *riskapp.ControlRequest) (*riskapp.ControlResult, error)) {
	var req riskapp.ControlRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)
	req.RiskID = chi.URLParam(r, "riskID")
	if id := chi.URLParam(r, "controlID"); id != "" {
		req.ControlID = id
	}

	out, err := op(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, status, out)
}

func (h *RiskHandler) RemoveControl(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RemoveControl(r.Context(), orgFromRequest(r), chi.URLParam(r, "riskID"), chi.URLParam(r, "controlID"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RecalculateAll re-derives every residual of the caller's organization.
func (h *RiskHandler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RecalculateAll(r.Context(), orgFromRequest(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeBatch(w, res)
}

//Personal.AI order the ending
