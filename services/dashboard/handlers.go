package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"posd/pkg/web"
	"posd/services/staff"
)

// Handler serves the dashboard endpoints. The tracker is optional; without a
// bus the live occupancy view degrades to 404.
type Handler struct {
	svc     *Service
	tracker *Tracker
}

// NewHandler wraps a dashboard service for HTTP serving.
func NewHandler(svc *Service, tracker *Tracker) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	return &Handler{svc: svc, tracker: tracker}, nil
}

// Routes mounts the dashboard endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/overview", h.handleOverview)
		r.Get("/stats/today", h.handleTodayStats)
		r.Get("/occupancy", h.handleOccupancy)
	})
	r.Patch("/tables/{id}/status", h.handleTableStatus)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	overview, err := h.svc.Overview(r.Context(), claims.StoreID)
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "compose overview")
		return
	}
	web.Respond(w, http.StatusOK, overview)
}

func (h *Handler) handleTodayStats(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	stats, err := h.svc.TodayStats(r.Context(), claims.StoreID)
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "compose today's stats")
		return
	}
	web.Respond(w, http.StatusOK, stats)
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	if h.tracker == nil {
		web.RespondError(w, http.StatusNotFound, "not_found", "live occupancy is not enabled")
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"tables": h.tracker.Snapshot(claims.StoreID)})
}

func (h *Handler) handleTableStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "valid table id is required")
		return
	}

	var req struct {
		Status    string `json:"status"`
		Occupancy *int   `json:"occupancy"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if req.Occupancy != nil && *req.Occupancy < 0 {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "occupancy must be non-negative")
		return
	}

	table, err := h.svc.UpdateTableStatus(r.Context(), claims.StoreID, claims.UserID, claims.Name, tableID, req.Status, req.Occupancy)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		web.RespondError(w, http.StatusNotFound, "not_found", "table not found")
		return
	case err != nil:
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{"table": table})
}
