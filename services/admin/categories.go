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

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var models []categoryModel
	err := h.orm.WithContext(r.Context()).
		Where("store_id = ?", claims.StoreID).
		Order("sort ASC, name ASC").
		Find(&models).Error
	if err != nil {
		respondStorage(w, "list categories")
		return
	}

	categories := make([]Category, 0, len(models))
	for _, m := range models {
		categories = append(categories, m.toAPI())
	}
	web.Respond(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		Name string `json:"name"`
		Sort int    `json:"sort"`
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

	now := nowUTC()
	model := categoryModel{
		ID: uuid.New(), StoreID: claims.StoreID, Name: req.Name, Sort: req.Sort,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := h.orm.WithContext(r.Context()).Create(&model).Error; err != nil {
		respondStorage(w, "create category")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionCategoryCreated,
		&logs.Subject{Kind: logs.SubjectCategory, ID: model.ID.String()},
		nil, map[string]any{"name": model.Name},
		fmt.Sprintf("created category %q", model.Name)))

	web.Respond(w, http.StatusCreated, map[string]any{"category": model.toAPI()})
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var req struct {
		Name *string `json:"name"`
		Sort *int    `json:"sort"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var model categoryModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "category not found")
		return
	case err != nil:
		respondStorage(w, "load category")
		return
	}

	before := map[string]any{"name": model.Name, "sort": model.Sort}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		model.Name = strings.TrimSpace(*req.Name)
	}
	if req.Sort != nil {
		model.Sort = *req.Sort
	}
	model.UpdatedAt = nowUTC()

	if err := h.orm.WithContext(r.Context()).Save(&model).Error; err != nil {
		respondStorage(w, "update category")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionCategoryUpdated,
		&logs.Subject{Kind: logs.SubjectCategory, ID: model.ID.String()},
		before, map[string]any{"name": model.Name, "sort": model.Sort},
		fmt.Sprintf("updated category %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"category": model.toAPI()})
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model categoryModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "category not found")
		return
	case err != nil:
		respondStorage(w, "load category")
		return
	}

	// Menus keep existing with their category reference cleared.
	if err := h.orm.WithContext(r.Context()).Delete(&model).Error; err != nil {
		respondStorage(w, "delete category")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionCategoryDeleted,
		&logs.Subject{Kind: logs.SubjectCategory, ID: model.ID.String()},
		map[string]any{"name": model.Name}, nil,
		fmt.Sprintf("deleted category %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"deleted": id})
}
