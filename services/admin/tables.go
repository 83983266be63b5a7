package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"posd/pkg/web"
	"posd/services/logs"
	"posd/services/staff"
)

func (h *Handler) handleListTables(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	query := h.orm.WithContext(r.Context()).Where("store_id = ?", claims.StoreID)
	if place := r.URL.Query().Get("place_id"); place != "" {
		placeID, err := uuid.Parse(place)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "validation_error", "valid place_id is required")
			return
		}
		query = query.Where("place_id = ?", placeID)
	}

	var models []tableModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		respondStorage(w, "list tables")
		return
	}

	tables := make([]Table, 0, len(models))
	for _, m := range models {
		tables = append(tables, m.toAPI())
	}
	web.Respond(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *Handler) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		Name     string     `json:"name"`
		PlaceID  *uuid.UUID `json:"place_id"`
		Capacity int        `json:"capacity"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if req.Capacity <= 0 {
		req.Capacity = 4
	}

	if req.PlaceID != nil {
		var place placeModel
		err := loadScoped(r.Context(), h.orm, *req.PlaceID, claims.StoreID, &place)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(w, "place not found")
			return
		case err != nil:
			respondStorage(w, "load place")
			return
		}
	}

	now := nowUTC()
	model := tableModel{
		ID: uuid.New(), StoreID: claims.StoreID, PlaceID: req.PlaceID,
		Name: req.Name, Status: TableStatusEmpty, Capacity: req.Capacity,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := h.orm.WithContext(r.Context()).Create(&model).Error; err != nil {
		respondStorage(w, "create table")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionTableCreated,
		&logs.Subject{Kind: logs.SubjectTable, ID: model.ID.String()},
		nil, map[string]any{"name": model.Name, "capacity": model.Capacity},
		fmt.Sprintf("created table %q", model.Name)))

	web.Respond(w, http.StatusCreated, map[string]any{"table": model.toAPI()})
}

func (h *Handler) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var req struct {
		Name     *string    `json:"name"`
		PlaceID  *uuid.UUID `json:"place_id"`
		Capacity *int       `json:"capacity"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var model tableModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "table not found")
		return
	case err != nil:
		respondStorage(w, "load table")
		return
	}

	before := map[string]any{"name": model.Name, "capacity": model.Capacity}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		model.Name = strings.TrimSpace(*req.Name)
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		model.Capacity = *req.Capacity
	}
	if req.PlaceID != nil {
		var place placeModel
		err := loadScoped(r.Context(), h.orm, *req.PlaceID, claims.StoreID, &place)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(w, "place not found")
			return
		case err != nil:
			respondStorage(w, "load place")
			return
		}
		model.PlaceID = req.PlaceID
	}
	model.UpdatedAt = nowUTC()

	if err := h.orm.WithContext(r.Context()).Save(&model).Error; err != nil {
		respondStorage(w, "update table")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionTableUpdated,
		&logs.Subject{Kind: logs.SubjectTable, ID: model.ID.String()},
		before, map[string]any{"name": model.Name, "capacity": model.Capacity},
		fmt.Sprintf("updated table %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"table": model.toAPI()})
}

func (h *Handler) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model tableModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "table not found")
		return
	case err != nil:
		respondStorage(w, "load table")
		return
	}

	if model.Status == TableStatusSeated {
		web.RespondError(w, http.StatusConflict, "conflict", "cannot delete a seated table")
		return
	}

	if err := h.orm.WithContext(r.Context()).Delete(&model).Error; err != nil {
		respondStorage(w, "delete table")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionTableDeleted,
		&logs.Subject{Kind: logs.SubjectTable, ID: model.ID.String()},
		model.snapshot(), nil,
		fmt.Sprintf("deleted table %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"deleted": id})
}
