package logs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"posd/pkg/web"
	"posd/services/staff"
)

// Handler exposes the log engine over HTTP. Store scoping comes from the
// verified JWT claims, never from the request body.
type Handler struct {
	engine *Engine
}

// NewHandler wraps an engine for HTTP serving.
func NewHandler(engine *Engine) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	return &Handler{engine: engine}, nil
}

// Routes mounts the log endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/logs", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleRecord)
		r.Post("/undo", h.handleUndo)
		r.Get("/undoable", h.handleUndoable)
		r.Get("/actions/{action}", h.handleByAction)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}
	action := Action(r.URL.Query().Get("action"))

	result, err := h.engine.List(r.Context(), claims.StoreID, limit, offset, action)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleByAction(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	action := Action(chi.URLParam(r, "action"))
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}

	result, err := h.engine.List(r.Context(), claims.StoreID, limit, 0, action)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleUndoable(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}

	entries, err := h.engine.Undoable(r.Context(), claims.StoreID, limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"logs": entries})
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		Action      Action         `json:"action"`
		Subject     *Subject       `json:"subject"`
		BeforeState map[string]any `json:"before_state"`
		AfterState  map[string]any `json:"after_state"`
		Details     string         `json:"details"`
		Amount      *float64       `json:"amount"`
		Undoable    *bool          `json:"undoable"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}

	entry, err := h.engine.Record(r.Context(), RecordParams{
		Action:      req.Action,
		StoreID:     claims.StoreID,
		ActorID:     claims.UserID,
		ActorName:   claims.Name,
		Subject:     req.Subject,
		BeforeState: req.BeforeState,
		AfterState:  req.AfterState,
		Details:     req.Details,
		Amount:      req.Amount,
		Undoable:    req.Undoable,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, map[string]any{"log": entry})
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		LogID string `json:"log_id"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), err.Error())
		return
	}

	logID, err := uuid.Parse(req.LogID)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, string(CodeValidation), "valid log_id is required")
		return
	}

	result, err := h.engine.Undo(r.Context(), logID, claims.StoreID, claims.UserID, claims.Name)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	web.Respond(w, http.StatusOK, result)
}

func respondEngineError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	message := "internal error"
	var e *Error
	if errors.As(err, &e) {
		message = e.Message
	}
	web.RespondError(w, HTTPStatus(code), string(code), message)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
