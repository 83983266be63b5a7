package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"posd/pkg/web"
	"posd/services/logs"
	"posd/services/staff"
)

const imageUploadTTL = 15 * time.Minute

func (h *Handler) handleListMenus(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	query := h.orm.WithContext(r.Context()).Where("store_id = ?", claims.StoreID)
	if category := r.URL.Query().Get("category_id"); category != "" {
		categoryID, err := uuid.Parse(category)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "validation_error", "valid category_id is required")
			return
		}
		query = query.Where("category_id = ?", categoryID)
	}

	var models []menuModel
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		respondStorage(w, "list menus")
		return
	}

	items := make([]MenuItem, 0, len(models))
	for _, m := range models {
		items = append(items, m.toAPI())
	}
	web.Respond(w, http.StatusOK, map[string]any{"menus": items})
}

func (h *Handler) handleCreateMenu(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		Name       string     `json:"name"`
		CategoryID *uuid.UUID `json:"category_id"`
		Price      float64    `json:"price"`
		Available  *bool      `json:"available"`
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
	if req.Price < 0 {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "price must be non-negative")
		return
	}

	if req.CategoryID != nil {
		var category categoryModel
		err := loadScoped(r.Context(), h.orm, *req.CategoryID, claims.StoreID, &category)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(w, "category not found")
			return
		case err != nil:
			respondStorage(w, "load category")
			return
		}
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	now := nowUTC()
	model := menuModel{
		ID: uuid.New(), StoreID: claims.StoreID, CategoryID: req.CategoryID,
		Name: req.Name, Price: req.Price, Available: available,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := h.orm.WithContext(r.Context()).Create(&model).Error; err != nil {
		respondStorage(w, "create menu item")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionMenuAdded,
		&logs.Subject{Kind: logs.SubjectMenu, ID: model.ID.String()},
		nil, map[string]any{"name": model.Name, "price": model.Price},
		fmt.Sprintf("added menu item %q", model.Name)))

	web.Respond(w, http.StatusCreated, map[string]any{"menu": model.toAPI()})
}

func (h *Handler) handleUpdateMenu(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var req struct {
		Name       *string    `json:"name"`
		CategoryID *uuid.UUID `json:"category_id"`
		Price      *float64   `json:"price"`
		Available  *bool      `json:"available"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var model menuModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "menu item not found")
		return
	case err != nil:
		respondStorage(w, "load menu item")
		return
	}

	before := map[string]any{"name": model.Name, "price": model.Price, "available": model.Available}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		model.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			web.RespondError(w, http.StatusBadRequest, "validation_error", "price must be non-negative")
			return
		}
		model.Price = *req.Price
	}
	if req.Available != nil {
		model.Available = *req.Available
	}
	if req.CategoryID != nil {
		var category categoryModel
		err := loadScoped(r.Context(), h.orm, *req.CategoryID, claims.StoreID, &category)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(w, "category not found")
			return
		case err != nil:
			respondStorage(w, "load category")
			return
		}
		model.CategoryID = req.CategoryID
	}
	model.UpdatedAt = nowUTC()

	if err := h.orm.WithContext(r.Context()).Save(&model).Error; err != nil {
		respondStorage(w, "update menu item")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionMenuUpdated,
		&logs.Subject{Kind: logs.SubjectMenu, ID: model.ID.String()},
		before, map[string]any{"name": model.Name, "price": model.Price, "available": model.Available},
		fmt.Sprintf("updated menu item %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"menu": model.toAPI()})
}

func (h *Handler) handleDeleteMenu(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model menuModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "menu item not found")
		return
	case err != nil:
		respondStorage(w, "load menu item")
		return
	}

	if err := h.orm.WithContext(r.Context()).Delete(&model).Error; err != nil {
		respondStorage(w, "delete menu item")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionMenuRemoved,
		&logs.Subject{Kind: logs.SubjectMenu, ID: model.ID.String()},
		map[string]any{"name": model.Name, "price": model.Price}, nil,
		fmt.Sprintf("removed menu item %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleMenuImage hands the client a presigned PUT URL and stores the object
// key as the item's image. The upload itself happens client-side.
func (h *Handler) handleMenuImage(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	if h.objects == nil || h.bucket == "" {
		web.RespondError(w, http.StatusServiceUnavailable, "unavailable", "object storage is not configured")
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model menuModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "menu item not found")
		return
	case err != nil:
		respondStorage(w, "load menu item")
		return
	}

	key := fmt.Sprintf("menus/%s/%s.jpg", claims.StoreID, model.ID)
	uploadURL, err := h.objects.PresignPut(r.Context(), h.bucket, key, imageUploadTTL)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("presign menu image upload")
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "presign upload")
		return
	}

	res := h.orm.WithContext(r.Context()).
		Model(&menuModel{}).
		Where("id = ? AND store_id = ?", model.ID, claims.StoreID).
		Updates(map[string]any{"image_url": key, "updated_at": nowUTC()})
	if res.Error != nil {
		respondStorage(w, "store image key")
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{
		"upload_url": uploadURL,
		"key":        key,
		"expires_in": int(imageUploadTTL.Seconds()),
	})
}
