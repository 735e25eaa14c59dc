package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	periodapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

// PeriodHandler serves period commits and the analytics derived from them.
type PeriodHandler struct {
	svc     periodapp.Service
	logger  logging.Logger
	maxBody int64
}

func NewPeriodHandler(svc periodapp.Service, logger logging.Logger, maxBody int64) *PeriodHandler {
	return &PeriodHandler{svc: svc, logger: logger, maxBody: maxBody}
}

func (h *PeriodHandler) RegisterRoutes(r chi.Router) {
	r.Route("/periods", func(pr chi.Router) {
		pr.Get("/", h.ListCommits)
		pr.Post("/", h.Commit)
		pr.Get("/trends", h.Trends)
		pr.Get("/migrations", h.Migrations)
		pr.Get("/compare", h.Compare)
		pr.Get("/{period}/snapshots", h.History)
		pr.Get("/{period}/archive", h.ArchiveURL)
	})
}

type commitBody struct {
	Period string `json:"period"`
	Notes  string `json:"notes"`
}

func (h *PeriodHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var body commitBody
	if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	out, err := h.svc.Commit(r.Context(), &periodapp.CommitRequest{
		OrganizationID: orgFromRequest(r),
		Period:         body.Period,
		Notes:          body.Notes,
		Actor:          actorFromRequest(r),
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *PeriodHandler) ListCommits(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListCommits(r.Context(), orgFromRequest(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *PeriodHandler) History(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.History(r.Context(), orgFromRequest(r), chi.URLParam(r, "period"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *PeriodHandler) Trends(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Trends(r.Context(), orgFromRequest(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *PeriodHandler) compareRequest(r *http.Request) *periodapp.CompareRequest {
	q := r.URL.Query()
	return &periodapp.CompareRequest{
		OrganizationID: orgFromRequest(r),
		From:           q.Get("from"),
		To:             q.Get("to"),
	}
}

// Migrations expects ?from=2025-Q1&to=2025-Q2.
func (h *PeriodHandler) Migrations(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Migrations(r.Context(), h.compareRequest(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PeriodHandler) Compare(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Compare(r.Context(), h.compareRequest(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ArchiveURL returns a presigned link to the archived snapshot document.
func (h *PeriodHandler) ArchiveURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.ArchiveURL(r.Context(), orgFromRequest(r), chi.URLParam(r, "period"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

//Personal.AI order the ending
