package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	treatmentapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

// TreatmentHandler exposes the per-risk treatment log. Entries are only
// written by the alert lifecycle.
type TreatmentHandler struct {
	svc     treatmentapp.Service
	logger  logging.Logger
	maxBody int64
}

func NewTreatmentHandler(svc treatmentapp.Service, logger logging.Logger, maxBody int64) *TreatmentHandler {
	return &TreatmentHandler{svc: svc, logger: logger, maxBody: maxBody}
}

func (h *TreatmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/treatment-log", func(tr chi.Router) {
		tr.Post("/archive", h.BatchArchive)
		tr.Post("/entries/{entryID}/archive", h.Archive)
		tr.Get("/{riskCode}", h.GetLog)
		tr.Get("/{riskCode}/verify", h.VerifyChain)
	})
}

func (h *TreatmentHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetLog(r.Context(), &treatmentapp.GetLogRequest{
		OrganizationID:  orgFromRequest(r),
		RiskCode:        chi.URLParam(r, "riskCode"),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *TreatmentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Archive(r.Context(), orgFromRequest(r), chi.URLParam(r, "entryID")); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TreatmentHandler) BatchArchive(w http.ResponseWriter, r *http.Request) {
	var req treatmentapp.BatchArchiveRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)

	res, err := h.svc.BatchArchive(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeBatch(w, res)
}

// VerifyChain answers 200 for an intact chain and 409 with the report when
// the chain is broken.
func (h *TreatmentHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.VerifyChain(r.Context(), orgFromRequest(r), chi.URLParam(r, "riskCode"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if !rep.Valid {
		status = http.StatusConflict
	}
	writeJSON(w, status, rep)
}

//Personal.AI order the ending
