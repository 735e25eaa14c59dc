package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	alertapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/alert"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

// AlertHandler serves the alert lifecycle and event scanning.
type AlertHandler struct {
	svc     alertapp.Service
	logger  logging.Logger
	maxBody int64
}

func NewAlertHandler(svc alertapp.Service, logger logging.Logger, maxBody int64) *AlertHandler {
	return &AlertHandler{svc: svc, logger: logger, maxBody: maxBody}
}

func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(ar chi.Router) {
		ar.Get("/", h.List)
		ar.Post("/batch/apply", h.BatchApply)
		ar.Post("/batch/reject", h.BatchReject)

		ar.Route("/{alertID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Post("/accept", h.Accept)
			item.Post("/reject", h.Reject)
			item.Post("/apply", h.Apply)
			item.Post("/undo", h.Undo)
		})
	})
	r.Post("/events", h.ScanEvent)
}

// List supports ?status=Pending,Accepted&risk_code=&min_confidence=.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	minConf, err := queryInt(r, "min_confidence")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req := alertapp.ListRequest{
		OrganizationID: orgFromRequest(r),
		Statuses:       queryList(r, "status"),
		RiskCode:       r.URL.Query().Get("risk_code"),
		MinConfidence:  minConf,
		Pagination:     parsePagination(r),
	}
	out, err := h.svc.List(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), orgFromRequest(r), chi.URLParam(r, "alertID"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AlertHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Accept)
}

func (h *AlertHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reject)
}

func (h *AlertHandler) Apply(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Apply)
}

// Undo takes the reason in "notes".
func (h *AlertHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Undo)
}

type transitionBody struct {
	Notes string `json:"notes"`
}

func (h *AlertHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, req *alertapp.TransitionRequest) (*alertapp.TransitionResult, error)) {
	var body transitionBody
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}
	out, err := op(r.Context(), &alertapp.TransitionRequest{
		OrganizationID: orgFromRequest(r),
		AlertID:        chi.URLParam(r, "alertID"),
		Actor:          actorFromRequest(r),
		Notes:          body.Notes,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AlertHandler) BatchApply(w http.ResponseWriter, r *http.Request) {
	var req alertapp.BatchApplyRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)
	req.Actor = actorFromRequest(r)

	res, err := h.svc.BatchApply(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeBatch(w, res)
}

func (h *AlertHandler) BatchReject(w http.ResponseWriter, r *http.Request) {
	var req alertapp.BatchRejectRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.OrganizationID = orgFromRequest(r)
	req.Actor = actorFromRequest(r)

	res, err := h.svc.BatchReject(r.Context(), &req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeBatch(w, res)
}

// ScanEvent accepts one external event and classifies it against the
// register synchronously.
func (h *AlertHandler) ScanEvent(w http.ResponseWriter, r *http.Request) {
	var ev intelligence.ExternalEvent
	if err := decodeJSON(w, r, h.maxBody, &ev); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	ev.OrganizationID = orgFromRequest(r)

	res, err := h.svc.ScanEvent(r.Context(), &ev)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.AlertsCreated > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

//Personal.AI order the ending
