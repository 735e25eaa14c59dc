package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	heatmapapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

type HeatmapHandler struct {
	svc    heatmapapp.Service
	logger logging.Logger
}

func NewHeatmapHandler(svc heatmapapp.Service, logger logging.Logger) *HeatmapHandler {
	return &HeatmapHandler{svc: svc, logger: logger}
}

func (h *HeatmapHandler) RegisterRoutes(r chi.Router) {
	r.Get("/heatmap", h.Current)
	r.Get("/heatmap/{period}", h.ForPeriod)
}

// Current supports ?view=inherent|residual&matrix_size=5.
func (h *HeatmapHandler) Current(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "matrix_size")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	g, err := h.svc.BuildCurrent(r.Context(), &heatmapapp.CurrentRequest{
		OrganizationID: orgFromRequest(r),
		MatrixSize:     size,
		View:           r.URL.Query().Get("view"),
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *HeatmapHandler) ForPeriod(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "matrix_size")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	g, err := h.svc.BuildForPeriod(r.Context(), &heatmapapp.PeriodRequest{
		OrganizationID: orgFromRequest(r),
		Period:         chi.URLParam(r, "period"),
		MatrixSize:     size,
		View:           r.URL.Query().Get("view"),
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

//Personal.AI order the ending
